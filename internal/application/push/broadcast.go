package push

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-push-relay/internal/domain"
	"github.com/go-push-relay/internal/pkg/id"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
)

// maxReportErrors caps the error detail carried by a report.
const maxReportErrors = 10

// SendToAll delivers one notification to every registered recipient. Per
// recipient failures are recorded in the report and never stop the run;
// only missing sender keys or an unreadable index fail the call.
func (s *service) SendToAll(ctx context.Context, fields domain.NotificationFields) (*domain.BroadcastReport, error) {
	if s.keys == nil {
		return nil, domain.ErrMissingServerKeys
	}
	payload, err := s.payload(fields)
	if err != nil {
		return nil, err
	}
	recipients, err := s.registry.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	var (
		sent, failed, expired atomic.Int64
		mu                    sync.Mutex
		errs                  = []string{}
		g                     errgroup.Group
	)
	g.SetLimit(s.workers)

	for recipientID, sub := range recipients {
		g.Go(func() error {
			err := s.deliver(ctx, recipientID, sub, payload)
			switch {
			case err == nil:
				sent.Inc()
				return nil
			case errors.Is(err, domain.ErrExpired):
				expired.Inc()
			}
			failed.Inc()
			mu.Lock()
			if len(errs) < maxReportErrors {
				errs = append(errs, fmt.Sprintf("%s: %v", recipientID, err))
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	report := &domain.BroadcastReport{
		ID:      id.New(),
		Sent:    int(sent.Load()),
		Failed:  int(failed.Load()),
		Expired: int(expired.Load()),
		Errors:  errs,
	}
	report.Total = report.Sent + report.Failed
	s.log.Info("broadcast finished",
		"id", report.ID, "sent", report.Sent, "failed", report.Failed,
		"expired", report.Expired, "total", report.Total)

	if s.publisher != nil {
		if err := s.publisher.PublishReport(ctx, report); err != nil {
			s.log.Warn("publish broadcast report failed", "id", report.ID, "err", err)
		}
	}
	return report, nil
}
