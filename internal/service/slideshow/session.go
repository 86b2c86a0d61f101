package slideshow

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"slidecast/internal/pkg/apperr"
	"slidecast/internal/pkg/scripttools"
)

// SessionState 凭证会话状态
type SessionState string

const (
	SessionUnvalidated SessionState = "unvalidated" // 未提交或校验失败
	SessionValidating  SessionState = "validating"  // 校验中
	SessionActive      SessionState = "active"      // 可用
	SessionExhausted   SessionState = "exhausted"   // 预算用完或配额耗尽
	SessionReplaced    SessionState = "replaced"    // 被新凭证替换
)

// ExhaustReason 会话失效原因
type ExhaustReason string

const (
	ExhaustBudget ExhaustReason = "budget_reached"
	ExhaustQuota  ExhaustReason = "quota_exhausted"
)

// Session 凭证会话
// 只存在于内存中；消耗计数单调递增且不超过预算
type Session struct {
	mu         sync.RWMutex
	credential string
	budget     int
	consumed   int
	sequence   int
	state      SessionState
	reason     ExhaustReason
	acceptedAt time.Time
}

// SessionInfo 会话快照（不包含凭证明文）
type SessionInfo struct {
	State         SessionState  `json:"state"`
	Sequence      int           `json:"sequence"`
	Budget        int           `json:"budget"`
	Consumed      int           `json:"consumed"`
	Remaining     int           `json:"remaining"`
	MaskedKey     string        `json:"masked_key,omitempty"`
	ExhaustReason ExhaustReason `json:"exhaust_reason,omitempty"`
	AcceptedAt    *time.Time    `json:"accepted_at,omitempty"`
}

// NewSession 创建一个已激活的会话
func NewSession(credential string, budget, sequence int, now time.Time) *Session {
	return &Session{
		credential: credential,
		budget:     budget,
		sequence:   sequence,
		state:      SessionActive,
		acceptedAt: now,
	}
}

// Credential 当前凭证；会话失效后为空
func (s *Session) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential
}

// Sequence 会话序号（即批次ID）
func (s *Session) Sequence() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sequence
}

// State 会话状态
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Active 是否可继续生成
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == SessionActive && s.consumed < s.budget
}

// Remaining 剩余预算；会话不可用时为 0
func (s *Session) Remaining() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != SessionActive {
		return 0
	}
	return s.budget - s.consumed
}

// Consume 记录一次成功生成；达到预算时会话失效并清除凭证
// 返回是否已达到预算
func (s *Session) Consume() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionActive {
		return true
	}
	s.consumed++
	if s.consumed >= s.budget {
		s.exhaustLocked(ExhaustBudget)
		return true
	}
	return false
}

// Exhaust 使会话失效并清除凭证；已失效或已替换的会话保持原状态
func (s *Session) Exhaust(reason ExhaustReason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionActive {
		s.credential = ""
		return
	}
	s.exhaustLocked(reason)
}

func (s *Session) exhaustLocked(reason ExhaustReason) {
	s.state = SessionExhausted
	s.reason = reason
	s.credential = ""
}

func (s *Session) replace() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionActive {
		s.state = SessionReplaced
	}
	s.credential = ""
}

// Info 会话快照
func (s *Session) Info() SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	remaining := 0
	if s.state == SessionActive {
		remaining = s.budget - s.consumed
	}
	acceptedAt := s.acceptedAt
	return SessionInfo{
		State:         s.state,
		Sequence:      s.sequence,
		Budget:        s.budget,
		Consumed:      s.consumed,
		Remaining:     remaining,
		MaskedKey:     MaskCredential(s.credential),
		ExhaustReason: s.reason,
		AcceptedAt:    &acceptedAt,
	}
}

// SessionManager 管理唯一的活动凭证会话
type SessionManager struct {
	mu         sync.Mutex
	validator  scripttools.CredentialValidator
	current    *Session
	sequence   int
	validating bool
	nowFn      func() time.Time
}

// NewSessionManager 创建会话管理器
func NewSessionManager(validator scripttools.CredentialValidator) *SessionManager {
	return &SessionManager{
		validator: validator,
		nowFn:     time.Now,
	}
}

// ParseBudget 解析操作者输入的预算，必须为正整数
func ParseBudget(raw string) (int, error) {
	budget, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || budget <= 0 {
		return 0, apperr.Validation("budget must be a positive integer", nil)
	}
	return budget, nil
}

// Submit 提交新凭证
// 预算非法时在本地拒绝，不调用外部校验；校验失败回到 unvalidated 并返回可重试的校验错误；
// 校验成功后替换旧会话，新会话从 0 开始计数且序号加一
func (m *SessionManager) Submit(ctx context.Context, credential string, budget int) (*Session, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, apperr.Validation("credential is required", nil)
	}
	if budget <= 0 {
		return nil, apperr.Validation("budget must be a positive integer", nil)
	}

	m.mu.Lock()
	if m.validating {
		m.mu.Unlock()
		return nil, apperr.Conflict("another credential is being validated")
	}
	m.validating = true
	m.mu.Unlock()

	valid, err := m.validator.Validate(ctx, credential)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.validating = false

	if err != nil {
		log.Warn().Err(err).Msg("credential validation call failed")
		return nil, apperr.Validation("credential validation failed", err)
	}
	if !valid {
		return nil, apperr.Validation("credential rejected", nil)
	}

	if m.current != nil {
		m.current.replace()
	}
	m.sequence++
	m.current = NewSession(credential, budget, m.sequence, m.nowFn())

	log.Info().
		Int("session_seq", m.sequence).
		Int("budget", budget).
		Str("key", MaskCredential(credential)).
		Msg("credential accepted")

	return m.current, nil
}

// Current 当前会话（可能已失效），没有提交过时为 nil
func (m *SessionManager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// ActiveSession 当前可用的会话，没有则为 nil
func (m *SessionManager) ActiveSession() *Session {
	current := m.Current()
	if current == nil || !current.Active() {
		return nil
	}
	return current
}

// Exhaust 使当前会话失效并清除凭证
func (m *SessionManager) Exhaust(reason ExhaustReason) {
	if current := m.Current(); current != nil {
		current.Exhaust(reason)
	}
}

// State 管理器视角的状态：校验中 / 无会话 / 当前会话状态
func (m *SessionManager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.validating {
		return SessionValidating
	}
	if m.current == nil {
		return SessionUnvalidated
	}
	return m.current.State()
}

// Info 当前会话快照
func (m *SessionManager) Info() SessionInfo {
	m.mu.Lock()
	validating := m.validating
	current := m.current
	m.mu.Unlock()

	if current == nil {
		state := SessionUnvalidated
		if validating {
			state = SessionValidating
		}
		return SessionInfo{State: state}
	}
	info := current.Info()
	if validating {
		info.State = SessionValidating
	}
	return info
}

// MaskCredential 遮盖凭证，只保留末4位
func MaskCredential(credential string) string {
	if credential == "" {
		return ""
	}
	if len(credential) <= 4 {
		return "****"
	}
	return "****" + credential[len(credential)-4:]
}
