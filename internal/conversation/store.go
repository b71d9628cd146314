package conversation

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/erg0nix/parley/internal/core"
	"github.com/erg0nix/parley/internal/params"
)

// Store owns the ledgers of all live conversations, keyed by conversation id. Requests on the
// same id are serialized; different ids proceed concurrently.
type Store struct {
	invoker Invoker
	logger  *slog.Logger

	mu    sync.Mutex
	slots map[int]*slot
}

type slot struct {
	mu      sync.Mutex
	ledger  *Ledger
	removed bool
}

type turnFunc func(ctx context.Context, req Request) (string, error)

func NewStore(invoker Invoker, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{
		invoker: invoker,
		logger:  logger,
		slots:   make(map[int]*slot),
	}
}

// Start begins conversation id with a fresh ledger, replacing any existing one once the first
// exchange succeeds.
func (s *Store) Start(ctx context.Context, id int, p params.Params, message string) (Reply, error) {
	sl := s.acquire(id)
	defer s.release(id, sl)

	return s.start(ctx, id, sl, p, message, s.complete)
}

func (s *Store) StartStream(ctx context.Context, id int, p params.Params, message string, onChunk func(string)) (Reply, error) {
	sl := s.acquire(id)
	defer s.release(id, sl)

	return s.start(ctx, id, sl, p, message, s.stream(onChunk))
}

// Continue sends message on conversation id, starting it when absent. When the call or token
// limit is reached the conversation is removed and the reply carries the termination notice.
func (s *Store) Continue(ctx context.Context, id int, p params.Params, limits params.Limits, message string) (Reply, error) {
	sl := s.acquire(id)
	defer s.release(id, sl)

	return s.continueWith(ctx, id, sl, p, limits, message, s.complete)
}

// ContinueStream is Continue with a streamed completion. Chunks are forwarded to onChunk as they
// arrive; the ledger is updated only after the stream is drained.
func (s *Store) ContinueStream(ctx context.Context, id int, p params.Params, limits params.Limits, message string, onChunk func(string)) (Reply, error) {
	sl := s.acquire(id)
	defer s.release(id, sl)

	return s.continueWith(ctx, id, sl, p, limits, message, s.stream(onChunk))
}

func (s *Store) start(ctx context.Context, id int, sl *slot, p params.Params, message string, turn turnFunc) (Reply, error) {
	ledger := NewLedger(p.Instruction)

	content, err := s.exchange(ctx, ledger, p, message, turn)
	if err != nil {
		return Reply{}, err
	}

	sl.ledger = ledger
	s.logger.Debug("conversation started", "conversation_id", id, "tokens", ledger.TotalTokens())

	return Reply{Content: content}, nil
}

func (s *Store) continueWith(ctx context.Context, id int, sl *slot, p params.Params, limits params.Limits, message string, turn turnFunc) (Reply, error) {
	if sl.ledger == nil {
		return s.start(ctx, id, sl, p, message, turn)
	}

	if reason, limit := exhausted(sl.ledger, p, limits, message); reason != ReasonNone {
		s.logger.Info("conversation terminated", "conversation_id", id, "reason", string(reason), "limit", limit)
		sl.ledger = nil
		return terminated(reason, limit), nil
	}

	content, err := s.exchange(ctx, sl.ledger, p, message, turn)
	if err != nil {
		return Reply{}, err
	}

	s.logger.Debug("conversation continued", "conversation_id", id, "messages", sl.ledger.Len(), "tokens", sl.ledger.TotalTokens())

	return Reply{Content: content}, nil
}

// exchange invokes the completion with the ledger plus the pending user message and commits both
// messages only when the invocation succeeds.
func (s *Store) exchange(ctx context.Context, ledger *Ledger, p params.Params, message string, turn turnFunc) (string, error) {
	messages := append(ledger.Messages(), core.Message{Role: core.RoleUser, Content: message, Sequence: ledger.Len()})

	content, err := turn(ctx, NewRequest(p, messages))
	if err != nil {
		return "", err
	}

	ledger.Append(core.RoleUser, message)
	ledger.Append(core.RoleAssistant, content)

	return content, nil
}

func (s *Store) complete(ctx context.Context, req Request) (string, error) {
	msg, err := s.invoker.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

func (s *Store) stream(onChunk func(string)) turnFunc {
	return func(ctx context.Context, req Request) (string, error) {
		stream, err := s.invoker.Stream(ctx, req)
		if err != nil {
			return "", err
		}
		defer func() {
			if err := stream.Close(); err != nil {
				s.logger.Warn("failed to close stream", "error", err)
			}
		}()

		return Collect(ctx, stream, onChunk)
	}
}

// Clear removes conversation id. Clearing an absent id is a no-op.
func (s *Store) Clear(id int) {
	sl := s.acquire(id)
	existed := sl.ledger != nil
	sl.ledger = nil
	s.release(id, sl)

	if existed {
		s.logger.Debug("conversation cleared", "conversation_id", id)
	}
}

// ClearAll removes every conversation, waiting for in-flight requests to finish.
func (s *Store) ClearAll() {
	s.mu.Lock()
	old := s.slots
	s.slots = make(map[int]*slot)
	s.mu.Unlock()

	for _, sl := range old {
		sl.mu.Lock()
		sl.ledger = nil
		sl.removed = true
		sl.mu.Unlock()
	}

	s.logger.Debug("conversations cleared", "count", len(old))
}

func (s *Store) Has(id int) bool {
	found := false
	s.view(id, func(*Ledger) { found = true })
	return found
}

// Size returns the number of messages in conversation id, or zero when it is absent.
func (s *Store) Size(id int) int {
	size := 0
	s.view(id, func(ledger *Ledger) { size = ledger.Len() })
	return size
}

// Tokens returns the compounded token total of conversation id, or zero when it is absent.
func (s *Store) Tokens(id int) int {
	tokens := 0
	s.view(id, func(ledger *Ledger) { tokens = ledger.TotalTokens() })
	return tokens
}

func (s *Store) Messages(id int) []core.Message {
	var messages []core.Message
	s.view(id, func(ledger *Ledger) { messages = ledger.Messages() })
	return messages
}

func (s *Store) Snapshot(id int) (Snapshot, bool) {
	var snapshot Snapshot
	found := false
	s.view(id, func(ledger *Ledger) {
		snapshot = ledger.Snapshot(id)
		found = true
	})
	return snapshot, found
}

// IDs lists the live conversation ids in ascending order.
func (s *Store) IDs() []int {
	s.mu.Lock()
	candidates := make([]int, 0, len(s.slots))
	for id := range s.slots {
		candidates = append(candidates, id)
	}
	s.mu.Unlock()

	ids := candidates[:0]
	for _, id := range candidates {
		if s.Has(id) {
			ids = append(ids, id)
		}
	}

	slices.Sort(ids)
	return ids
}

// acquire returns the locked slot for id, creating it when missing. A slot removed while the
// caller waited for its lock is skipped in favour of the current one.
func (s *Store) acquire(id int) *slot {
	for {
		s.mu.Lock()
		sl, ok := s.slots[id]
		if !ok {
			sl = &slot{}
			s.slots[id] = sl
		}
		s.mu.Unlock()

		sl.mu.Lock()
		if !sl.removed {
			return sl
		}
		sl.mu.Unlock()
	}
}

// release unlocks sl, dropping it from the map when it no longer holds a ledger.
func (s *Store) release(id int, sl *slot) {
	if sl.ledger == nil && !sl.removed {
		s.mu.Lock()
		if s.slots[id] == sl {
			delete(s.slots, id)
		}
		s.mu.Unlock()
		sl.removed = true
	}

	sl.mu.Unlock()
}

// view runs fn on the ledger of id under the slot lock. It never creates a slot.
func (s *Store) view(id int, fn func(*Ledger)) {
	s.mu.Lock()
	sl, ok := s.slots[id]
	s.mu.Unlock()

	if !ok {
		return
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	if !sl.removed && sl.ledger != nil {
		fn(sl.ledger)
	}
}
