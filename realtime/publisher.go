package realtime

// Publisher доставляет конверты подписчикам топика. Publish работает по
// принципу fire-and-forget: вызов не блокирует и не возвращает ошибку,
// чтобы проблемы транспорта никогда не откатывали вызвавший его переход
// состояния. Отказы логируются внутри реализации.
//
// Гарантия порядка: конверты, опубликованные одним процессом в один топик,
// доставляются подключённому подписчику в порядке публикации.
type Publisher interface {
	Publish(topic Topic, envelope Envelope)
}

// Fanout публикует конверт в несколько транспортов (MQTT + WebSocket hub).
type Fanout struct {
	publishers []Publisher
}

func NewFanout(publishers ...Publisher) *Fanout {
	return &Fanout{publishers: publishers}
}

func (f *Fanout) Publish(topic Topic, envelope Envelope) {
	for _, p := range f.publishers {
		p.Publish(topic, envelope)
	}
}
