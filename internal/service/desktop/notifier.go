// Package desktop shows native desktop notifications for new records.
package desktop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CryptoNotify/internal/domain/models"
	drepo "CryptoNotify/internal/domain/repository"
	"CryptoNotify/pkg/logger"

	"github.com/gen2brain/beeep"
)

// Permission mirrors the host's notification permission.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// ParsePermission validates a permission string.
func ParsePermission(s string) (Permission, error) {
	switch p := Permission(s); p {
	case PermissionDefault, PermissionGranted, PermissionDenied:
		return p, nil
	default:
		return "", fmt.Errorf("unknown permission %q", s)
	}
}

// Prompter asks the user for notification permission.
type Prompter interface {
	RequestPermission(ctx context.Context) (Permission, error)
}

// ConfigPrompter answers every request with a fixed, configured permission.
type ConfigPrompter struct {
	Answer Permission
}

func (p ConfigPrompter) RequestPermission(context.Context) (Permission, error) {
	if p.Answer == "" {
		return PermissionDefault, nil
	}
	return p.Answer, nil
}

// Toast is one native notification.
type Toast struct {
	Title    string
	Body     string
	Urgent   bool
	Timeout  time.Duration
	FocusURL string
}

// Backend displays toasts.
type Backend interface {
	Show(t Toast) error
}

// BeeepBackend displays toasts through the OS notification center.
// Timeout and FocusURL are advisory: the OS decides dismissal and click handling.
type BeeepBackend struct {
	AppName string
	Icon    string
}

func (b BeeepBackend) Show(t Toast) error {
	if b.AppName != "" {
		beeep.AppName = b.AppName
	}
	if t.Urgent {
		return beeep.Alert(t.Title, t.Body, b.Icon)
	}
	return beeep.Notify(t.Title, t.Body, b.Icon)
}

// Config tunes the notifier.
type Config struct {
	DismissAfter time.Duration
	FocusURL     string
	Permission   Permission
}

// Notifier gates toasts on the host permission. It asks the prompter at
// most once while the permission is "default" and never asks again after
// a denial.
type Notifier struct {
	backend  Backend
	prompter Prompter
	metrics  drepo.Metrics
	logger   *logger.Logger
	cfg      Config

	mu         sync.Mutex
	permission Permission
	asked      bool
}

// NewNotifier creates a notifier starting in cfg.Permission ("default" when empty).
func NewNotifier(cfg Config, backend Backend, prompter Prompter, metrics drepo.Metrics, l *logger.Logger) *Notifier {
	if cfg.Permission == "" {
		cfg.Permission = PermissionDefault
	}
	if cfg.DismissAfter <= 0 {
		cfg.DismissAfter = 5 * time.Second
	}
	return &Notifier{
		backend:    backend,
		prompter:   prompter,
		metrics:    metrics,
		logger:     l.Component("desktop"),
		cfg:        cfg,
		permission: cfg.Permission,
	}
}

// Permission returns the current permission.
func (n *Notifier) Permission() Permission {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.permission
}

// SetPermission records a permission change made outside the agent.
func (n *Notifier) SetPermission(p Permission) {
	n.mu.Lock()
	n.permission = p
	n.mu.Unlock()
	n.logger.Info("desktop permission changed", logger.String("permission", string(p)))
}

// Notify shows r as a toast if permission allows. Failures are swallowed.
func (n *Notifier) Notify(ctx context.Context, r models.Record) {
	if !n.allowed(ctx) {
		n.metrics.RecordBridge("desktop", "blocked")
		return
	}

	err := n.backend.Show(Toast{
		Title:    r.Title,
		Body:     r.Message,
		Urgent:   r.Urgent,
		Timeout:  n.cfg.DismissAfter,
		FocusURL: n.cfg.FocusURL,
	})
	if err != nil {
		n.metrics.RecordBridge("desktop", "failed")
		n.logger.Debug("desktop notification failed", logger.String("id", r.ID), logger.Error(err))
		return
	}
	n.metrics.RecordBridge("desktop", "shown")
}

func (n *Notifier) allowed(ctx context.Context) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	switch n.permission {
	case PermissionGranted:
		return true
	case PermissionDenied:
		return false
	}

	if n.asked || n.prompter == nil {
		return false
	}
	n.asked = true

	p, err := n.prompter.RequestPermission(ctx)
	if err != nil {
		n.logger.Debug("permission request failed", logger.Error(err))
		return false
	}
	n.permission = p
	return p == PermissionGranted
}
