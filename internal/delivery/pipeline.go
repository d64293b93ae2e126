// Package delivery persists scored results and fans notifications out to the
// branch manager, the oversight address and optionally the applicant.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"applicant-assessment-service/internal/domain"
)

// ErrPersistFailed wraps any failure to write the result to the durable store.
var ErrPersistFailed = errors.New("failed to save test results")

// ResultStore is the durable result store.
type ResultStore interface {
	Save(ctx context.Context, record domain.StoredResult) error
	Get(ctx context.Context, recordID string) (domain.StoredResult, error)
}

// AttemptLog records per-recipient notification outcomes. Writes are best effort.
type AttemptLog interface {
	RecordAttempt(ctx context.Context, attempt domain.DeliveryAttempt) error
}

// Options tunes the background notification fan-out.
type Options struct {
	NotifyTimeout time.Duration
	MaxParallel   int
}

// Pipeline implements persist-then-notify. Persistence is synchronous; the
// notification fan-out runs in the background and never affects the caller.
type Pipeline struct {
	store    ResultStore
	attempts AttemptLog
	router   *Router
	renderer *Renderer
	notifier Notifier
	certs    *CertificateIssuer
	opts     Options

	now   func() time.Time
	newID func() string
	wg    sync.WaitGroup
}

func NewPipeline(store ResultStore, attempts AttemptLog, router *Router, renderer *Renderer, notifier Notifier, certs *CertificateIssuer, opts Options) *Pipeline {
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = time.Minute
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = 4
	}
	return &Pipeline{
		store:    store,
		attempts: attempts,
		router:   router,
		renderer: renderer,
		notifier: notifier,
		certs:    certs,
		opts:     opts,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Deliver persists result under a fresh record id and schedules notifications.
// A persistence failure returns ErrPersistFailed and notifies nobody.
func (p *Pipeline) Deliver(ctx context.Context, result domain.Result) (domain.StoredResult, error) {
	record := domain.StoredResult{
		RecordID:  p.newID(),
		Result:    result,
		CreatedAt: p.now().UTC(),
	}
	if err := p.store.Save(ctx, record); err != nil {
		log.Printf("delivery: persist for %s failed: %v", result.Applicant.Email, err)
		return domain.StoredResult{}, fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	log.Printf("delivery: stored record %s (%s, %d%%)", record.RecordID, result.Applicant.Name, result.Percentage)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.NotifyTimeout)
		defer cancel()
		p.Notify(nctx, record)
	}()
	return record, nil
}

// Notify sends one message per recipient concurrently and records every outcome.
// A failing or panicking send never affects the others.
func (p *Pipeline) Notify(ctx context.Context, record domain.StoredResult) []domain.DeliveryAttempt {
	recipients := p.router.Recipients(record.Result)
	if len(recipients) == 0 {
		log.Printf("delivery: record %s has no recipients", record.RecordID)
		return nil
	}

	var cert *domain.Certificate
	if record.Result.Passed && p.certs != nil {
		c, err := p.certs.Issue(record.Result, record.RecordID)
		if err != nil {
			log.Printf("delivery: certificate for %s failed: %v", record.RecordID, err)
		} else {
			cert = &c
		}
	}

	attempts := make([]domain.DeliveryAttempt, len(recipients))
	var g errgroup.Group
	g.SetLimit(p.opts.MaxParallel)
	for i, to := range recipients {
		g.Go(func() error {
			err := p.sendOne(ctx, record, to, cert)
			attempts[i] = domain.DeliveryAttempt{
				RecordID:    record.RecordID,
				Recipient:   to.Address,
				Status:      domain.DeliverySent,
				AttemptedAt: p.now().UTC(),
			}
			if err != nil {
				attempts[i].Status = domain.DeliveryFailed
				attempts[i].Error = err.Error()
				log.Printf("delivery: notify %s (%s) for record %s failed: %v", to.Address, to.Role, record.RecordID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if p.attempts != nil {
		for _, a := range attempts {
			if err := p.attempts.RecordAttempt(ctx, a); err != nil {
				log.Printf("delivery: record attempt for %s failed: %v", a.Recipient, err)
			}
		}
	}
	return attempts
}

func (p *Pipeline) sendOne(ctx context.Context, record domain.StoredResult, to Recipient, cert *domain.Certificate) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panic: %v", r)
		}
	}()
	msg, err := p.renderer.Render(record, to, cert)
	if err != nil {
		return err
	}
	return p.notifier.Send(ctx, msg)
}

// Wait blocks until every background fan-out has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
