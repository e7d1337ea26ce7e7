package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job — единица фоновой работы. Получает собственный контекст с дедлайном,
// не связанный с HTTP-запросом, который её породил.
type Job func(ctx context.Context)

// Pool — ограниченный пул воркеров для фоновой отправки уведомлений.
// Очередь ограничивает расход памяти под нагрузкой; Submit даёт обратное
// давление вместо тихой потери заданий. Завершение HTTP-запроса не
// отменяет уже принятое задание.
type Pool struct {
	jobs       chan Job
	jobTimeout time.Duration
	wg         sync.WaitGroup
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
}

func NewPool(workers, queueSize int, jobTimeout time.Duration, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	if jobTimeout <= 0 {
		jobTimeout = 30 * time.Second
	}

	p := &Pool{
		jobs:       make(chan Job, queueSize),
		jobTimeout: jobTimeout,
		logger:     logger,
	}

	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit ставит задание в очередь. Блокирует, только когда очередь полна.
// После Shutdown задания отклоняются с false.
func (p *Pool) Submit(job Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.logger.Warn("notification pool is shut down, rejecting job")
		return false
	}

	// Отправка под мьютексом исключает гонку с close в Shutdown; воркеры
	// разбирают очередь независимо, так что блокировка здесь не мешает им.
	p.jobs <- job
	return true
}

// Shutdown перестаёт принимать задания и дожидается, пока воркеры доделают
// уже принятые.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for job := range p.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), p.jobTimeout)
		job(ctx)
		cancel()
	}
}
