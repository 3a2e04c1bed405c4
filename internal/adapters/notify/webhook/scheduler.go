package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"medtrack/internal/platform/httpclient"
	"medtrack/internal/ports/notify"
)

// Scheduler delega los recordatorios a un servicio push externo:
//
//	POST   {base}/notifications          -> {"handle": "..."}
//	DELETE {base}/notifications/{handle}
//	GET    {base}/notifications          -> [{"handle": "...", "notification": {...}}]
type Scheduler struct {
	client *httpclient.Client
}

var _ notify.Scheduler = (*Scheduler)(nil)

func New(client *httpclient.Client) (*Scheduler, error) {
	if client == nil {
		return nil, errors.New("webhook: http client required")
	}
	return &Scheduler{client: client}, nil
}

type scheduleResponse struct {
	Handle string `json:"handle"`
}

func (s *Scheduler) Schedule(ctx context.Context, n notify.Notification) (string, error) {
	var out scheduleResponse
	if err := s.client.DoJSON(ctx, http.MethodPost, "/notifications", n, &out); err != nil {
		return "", fmt.Errorf("webhook schedule: %w", err)
	}
	if strings.TrimSpace(out.Handle) == "" {
		return "", errors.New("webhook schedule: empty handle in response")
	}
	return out.Handle, nil
}

// Cancel trata 404 como ya cancelado.
func (s *Scheduler) Cancel(ctx context.Context, handle string) error {
	err := s.client.DoJSON(ctx, http.MethodDelete, "/notifications/"+url.PathEscape(handle), nil, nil)
	if err != nil && !httpclient.IsStatus(err, http.StatusNotFound) {
		return fmt.Errorf("webhook cancel: %w", err)
	}
	return nil
}

func (s *Scheduler) List(ctx context.Context) ([]notify.Scheduled, error) {
	out := make([]notify.Scheduled, 0)
	if err := s.client.DoJSON(ctx, http.MethodGet, "/notifications", nil, &out); err != nil {
		return nil, fmt.Errorf("webhook list: %w", err)
	}
	return out, nil
}
