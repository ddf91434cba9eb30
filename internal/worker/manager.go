package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/ydjemai93/test-drive/internal/agent"
	"github.com/ydjemai93/test-drive/internal/events"
	"github.com/ydjemai93/test-drive/internal/logic"
	"github.com/ydjemai93/test-drive/internal/model"
	"github.com/ydjemai93/test-drive/internal/repository"
	"github.com/ydjemai93/test-drive/pkg/logger"
	"gorm.io/gorm"
)

// ErrQueueFull is returned when the dispatch queue cannot accept a job.
var ErrQueueFull = errors.New("dispatch queue full")

// Runner executes one call attempt end to end.
type Runner interface {
	Run(ctx context.Context, job agent.Job) agent.CallResult
}

// Manager runs dispatched call jobs on a fixed pool of slots, persists
// their outcomes and notifies webhooks on terminal states.
type Manager struct {
	runner   Runner
	calls    *repository.CallRepository
	webhooks *logic.WebhookService
	events   *events.Hub

	jobs  chan agent.Job
	slots int

	ctx      context.Context
	cancel   context.CancelFunc
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewManager(db *gorm.DB, runner Runner, hub *events.Hub, slots, queueSize int) *Manager {
	if slots <= 0 {
		slots = 1
	}
	if queueSize <= 0 {
		queueSize = 16
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		runner:   runner,
		calls:    repository.NewCallRepository(db),
		webhooks: logic.NewWebhookService(repository.NewWebhookRepository(db)),
		events:   hub,
		jobs:     make(chan agent.Job, queueSize),
		slots:    slots,
		ctx:      ctx,
		cancel:   cancel,
		stop:     make(chan struct{}),
	}
}

func (m *Manager) Start() {
	logger.Log.Infof("Worker Manager started with %d slots", m.slots)
	for i := 0; i < m.slots; i++ {
		m.wg.Add(1)
		go m.runLoop(i)
	}
}

// Stop cancels in-flight orchestrations and waits for the slots to
// drain.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		m.cancel()
	})
	m.wg.Wait()
}

// Enqueue hands a dispatched job to the pool. Never blocks; a full queue
// is reported to the caller, retry policy is theirs.
func (m *Manager) Enqueue(job agent.Job) error {
	select {
	case m.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (m *Manager) runLoop(slot int) {
	defer m.wg.Done()
	for {
		select {
		case <-m.stop:
			return
		case job := <-m.jobs:
			logger.Log.Infof("[slot %d] Running call job %s (room %s)", slot, job.ID, job.RoomName)
			m.handle(job)
		}
	}
}

func (m *Manager) handle(job agent.Job) {
	rec, err := m.calls.FindByJobID(job.ID)
	if err != nil {
		// Jobs dispatched out of band still get a record.
		rec = &model.CallRecord{
			JobID:    job.ID,
			RoomName: job.RoomName,
			Metadata: job.Metadata,
			Status:   model.CallStatusQueued,
		}
		if cerr := m.calls.Create(rec); cerr != nil {
			logger.Log.Errorf("Failed to create call record for job %s: %v", job.ID, cerr)
		}
	}

	rec.Status = model.CallStatusDialing
	if err := m.calls.Save(rec); err != nil {
		logger.Log.Errorf("Failed to update call record %s: %v", job.ID, err)
	}

	stopWatch := m.watchPhases(job.ID)
	res := m.runner.Run(m.ctx, job)
	stopWatch()

	rec.Disposition = res.Disposition
	rec.SIPStatusCode = res.SIPStatusCode
	rec.SIPStatus = res.SIPStatus
	rec.DialedAt = res.DialedAt
	rec.AnsweredAt = res.AnsweredAt
	rec.EndedAt = res.EndedAt
	if res.Err != nil {
		rec.Status = model.CallStatusFailed
		rec.Error = res.Err.Error()
	} else {
		rec.Status = model.CallStatusComplete
	}

	if err := m.calls.Save(rec); err != nil {
		logger.Log.Errorf("Failed to finalize call record %s: %v", job.ID, err)
	}
	logger.Log.Infof("Call job %s finished: %s/%s", job.ID, rec.Status, rec.Disposition)

	m.webhooks.Dispatch(rec)
}

// watchPhases mirrors the attempt's live phase onto the call record so
// the API shows "active" while the conversation is up. The returned stop
// function blocks until the watcher is gone, so no status write can land
// after the terminal one.
func (m *Manager) watchPhases(jobID string) func() {
	if m.events == nil {
		return func() {}
	}

	ch, cancelSub := m.events.Subscribe(jobID)
	quit := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		for {
			select {
			case <-quit:
				return
			case ev := <-ch:
				if ev.Type == events.TypePhase && ev.Phase == agent.PhaseActive.String() {
					if err := m.calls.UpdateStatus(jobID, model.CallStatusActive); err != nil {
						logger.Log.Errorf("Failed to mark call %s active: %v", jobID, err)
					}
				}
			}
		}
	}()

	return func() {
		close(quit)
		<-stopped
		cancelSub()
	}
}
