package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-passgate/passgate/internal/models"
	"github.com/go-passgate/passgate/internal/store"
	"github.com/go-passgate/passgate/internal/util"

	"github.com/google/uuid"
)

// AuditLogEntry represents the data needed to create an audit log entry
type AuditLogEntry struct {
	EventType     models.EventType
	Severity      models.EventSeverity
	ActorUserID   string
	ActorUsername string
	ActorIP       string
	ResourceType  models.ResourceType
	ResourceID    string
	ResourceName  string
	Action        string
	Details       models.AuditDetails
	Success       bool
	ErrorMessage  string
	UserAgent     string
	RequestPath   string
	RequestMethod string
}

// AuditService records security events asynchronously. Writes are batched
// by a background worker; a full buffer drops events rather than blocking
// the request path.
type AuditService struct {
	store         *store.Store
	enabled       bool
	batchSize     int
	flushInterval time.Duration

	events   chan *models.AuditLog
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewAuditService creates a new audit service
func NewAuditService(
	s *store.Store,
	enabled bool,
	bufferSize, batchSize int,
	flushInterval time.Duration,
) *AuditService {
	if bufferSize <= 0 {
		bufferSize = 1000
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}

	service := &AuditService{
		store:         s,
		enabled:       enabled,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		events:        make(chan *models.AuditLog, bufferSize),
		done:          make(chan struct{}),
	}

	if !enabled {
		log.Println("[Audit] Service is disabled")
		return service
	}

	service.wg.Add(1)
	go service.run()
	log.Printf("[Audit] Service started with buffer size %d", bufferSize)

	return service
}

// run is the background goroutine collecting events into batches. The batch
// slice is owned by this goroutine only.
func (s *AuditService) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	batch := make([]*models.AuditLog, 0, s.batchSize)

	writeOut := func() {
		if len(batch) == 0 {
			return
		}
		if err := s.store.CreateAuditLogBatch(batch); err != nil {
			log.Printf("[Audit] Failed to write audit log batch: %v", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-s.events:
			batch = append(batch, entry)
			if len(batch) >= s.batchSize {
				writeOut()
			}

		case <-ticker.C:
			writeOut()

		case <-s.done:
			// Drain whatever is still queued, then flush.
			for {
				select {
				case entry := <-s.events:
					batch = append(batch, entry)
				default:
					writeOut()
					return
				}
			}
		}
	}
}

// Log records an audit log entry asynchronously
func (s *AuditService) Log(ctx context.Context, entry AuditLogEntry) {
	if !s.enabled {
		return
	}

	if entry.ActorIP == "" {
		entry.ActorIP = util.GetIPFromContext(ctx)
	}
	if entry.ActorUsername == "" {
		entry.ActorUsername = models.GetUsernameFromContext(ctx)
	}

	now := time.Now()
	row := &models.AuditLog{
		ID:            uuid.New().String(),
		EventType:     entry.EventType,
		EventTime:     now,
		Severity:      entry.Severity,
		ActorUserID:   entry.ActorUserID,
		ActorUsername: entry.ActorUsername,
		ActorIP:       entry.ActorIP,
		ResourceType:  entry.ResourceType,
		ResourceID:    entry.ResourceID,
		ResourceName:  entry.ResourceName,
		Action:        entry.Action,
		Details:       maskSensitiveDetails(entry.Details),
		Success:       entry.Success,
		ErrorMessage:  entry.ErrorMessage,
		UserAgent:     entry.UserAgent,
		RequestPath:   entry.RequestPath,
		RequestMethod: entry.RequestMethod,
		CreatedAt:     now,
	}

	// Non-blocking send; the request path never waits on audit I/O.
	select {
	case s.events <- row:
	default:
		log.Printf("WARNING: Audit log buffer full, dropping event: %s", entry.Action)
	}
}

// CleanupOldLogs deletes audit logs older than the retention period
func (s *AuditService) CleanupOldLogs(retention time.Duration) (int64, error) {
	return s.store.DeleteAuditLogsBefore(time.Now().Add(-retention))
}

// Shutdown stops the worker after draining and flushing queued events.
// Calling it more than once is safe.
func (s *AuditService) Shutdown(ctx context.Context) error {
	if !s.enabled {
		return nil
	}

	s.stopOnce.Do(func() { close(s.done) })

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		log.Println("[Audit] Service shut down gracefully")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("audit service shutdown timeout: %w", ctx.Err())
	}
}

// Fields whose values never reach the audit table in the clear. Token and
// session identifiers keep a recognizable prefix and suffix for correlation.
var (
	redactedFields = []string{
		"password", "client_secret", "token", "access_token", "secret", "cookie",
	}
	abbreviatedFields = []string{"session_id", "token_id"}
)

// maskSensitiveDetails masks credential material in audit log details
func maskSensitiveDetails(details models.AuditDetails) models.AuditDetails {
	if details == nil {
		return nil
	}

	masked := make(models.AuditDetails, len(details))
	for key, value := range details {
		lower := strings.ToLower(key)

		if matchesAny(lower, redactedFields) {
			masked[key] = "***REDACTED***"
			continue
		}

		if matchesAny(lower, abbreviatedFields) {
			if str, ok := value.(string); ok && len(str) > 12 {
				masked[key] = str[:8] + "..." + str[len(str)-4:]
				continue
			}
		}

		masked[key] = value
	}

	return masked
}

func matchesAny(key string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(key, needle) {
			return true
		}
	}
	return false
}
