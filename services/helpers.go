package services

// Notifier отправляет push-уведомления в фоне. Вызовы возвращаются сразу;
// доставка, её частичные отказы и недоступность провайдера — забота
// реализации и никогда не видны вызывающему переходу состояния.
type Notifier interface {
	NotifyRegion(city string, excludeUserID int, title, body string, data map[string]string)
	NotifyUsers(userIDs []int, title, body string, data map[string]string)
}
