package service

import (
	"context"
	"sync"
	"time"

	"github.com/BerniceZTT/sales_pipeline/models"
	"github.com/BerniceZTT/sales_pipeline/repository"
	"github.com/BerniceZTT/sales_pipeline/utils"
)

// Session 单个用户的看板和进行中的成交流程
type Session struct {
	mu       sync.Mutex
	operator Operator
	filter   BoardFilter
	board    *Board
	closings map[string]*ClosingWorkflow
	lastUsed time.Time
}

// MoveOutcome 一次拖拽后的结果和最新看板
type MoveOutcome struct {
	Result TransitionResult `json:"result"`
	Board  *Board           `json:"board"`
}

// ClosingOutcome 成交流程操作后的状态和最新看板
type ClosingOutcome struct {
	Closing ClosingSnapshot `json:"closing"`
	Board   *Board          `json:"board,omitempty"`
}

// SessionManager 按用户维护会话，同一用户的操作串行执行
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	loader      *BoardLoader
	transitions *TransitionController
	now         func() time.Time
}

func NewSessionManager(store repository.Store) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*Session),
		loader:      NewBoardLoader(store),
		transitions: NewTransitionController(store),
		now:         time.Now,
	}
}

func (m *SessionManager) session(op Operator) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[op.ID]
	if !ok {
		s = &Session{operator: op, closings: make(map[string]*ClosingWorkflow)}
		m.sessions[op.ID] = s
	}
	s.lastUsed = m.now()
	return s
}

// LoadBoard 加载看板并替换会话中的看板，失败时保留原看板
func (m *SessionManager) LoadBoard(ctx context.Context, op Operator, f BoardFilter) (*Board, error) {
	s := m.session(op)
	s.mu.Lock()
	defer s.mu.Unlock()

	board, err := m.loader.Load(ctx, f)
	if err != nil {
		return nil, err
	}
	s.filter = f
	s.board = board
	return board, nil
}

// Move 在会话看板上执行一次拖拽
func (m *SessionManager) Move(ctx context.Context, op Operator, mv Move) (*MoveOutcome, error) {
	s := m.session(op)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.board == nil {
		return nil, validationError("移动询价单", "请先加载看板")
	}

	result, next, err := m.transitions.RequestTransition(ctx, s.board, mv, op)
	s.board = next
	if err != nil {
		return &MoveOutcome{Result: result, Board: next}, err
	}
	if result.Closing != nil {
		s.closings[result.ClosingID] = result.Closing
	}
	return &MoveOutcome{Result: result, Board: next}, nil
}

func (s *Session) closing(id string) (*ClosingWorkflow, error) {
	w, ok := s.closings[id]
	if !ok {
		return nil, notFoundError("成交流程", "成交流程 "+id+" 不存在")
	}
	return w, nil
}

// Closing 查询成交流程
func (m *SessionManager) Closing(op Operator, id string) (ClosingSnapshot, error) {
	s := m.session(op)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.closing(id)
	if err != nil {
		return ClosingSnapshot{}, err
	}
	return w.Snapshot(), nil
}

// Submit 提交成交表单
func (m *SessionManager) Submit(op Operator, id string, form ClosingForm) (ClosingSnapshot, error) {
	s := m.session(op)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.closing(id)
	if err != nil {
		return ClosingSnapshot{}, err
	}
	err = w.Submit(form)
	return w.Snapshot(), err
}

// Confirm 确认或退回成交，提交成功后同步看板中的询价单
func (m *SessionManager) Confirm(ctx context.Context, op Operator, id string, confirmed bool) (*ClosingOutcome, error) {
	s := m.session(op)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.closing(id)
	if err != nil {
		return nil, err
	}
	err = w.Confirm(ctx, confirmed)
	return s.settle(w), err
}

// Retry 重试失败的成交提交
func (m *SessionManager) Retry(ctx context.Context, op Operator, id string) (*ClosingOutcome, error) {
	s := m.session(op)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.closing(id)
	if err != nil {
		return nil, err
	}
	err = w.Retry(ctx)
	return s.settle(w), err
}

// settle 成交完成后把最新的询价单写回看板并结束流程
func (s *Session) settle(w *ClosingWorkflow) *ClosingOutcome {
	if w.State() == ClosingCommitted && s.board != nil {
		won := w.Enquiry()
		s.board = s.board.UpdateEnquiry(won.ID, func(e *models.Enquiry) {
			e.Stage = won.Stage
			e.CurrentStageID = won.CurrentStageID
			e.WonDate = won.WonDate
			e.WonBillID = won.WonBillID
			e.Version = won.Version
			e.UpdatedAt = won.UpdatedAt
		})
		delete(s.closings, w.ID())
	}
	return &ClosingOutcome{Closing: w.Snapshot(), Board: s.board}
}

// Cancel 取消成交流程并撤销看板上的移动
func (m *SessionManager) Cancel(op Operator, id string) (*ClosingOutcome, error) {
	s := m.session(op)
	s.mu.Lock()
	defer s.mu.Unlock()

	w, err := s.closing(id)
	if err != nil {
		return nil, err
	}
	if err := w.Cancel(); err != nil {
		return nil, err
	}
	delete(s.closings, id)

	if s.board != nil {
		mv := w.Move()
		at, err := s.board.At(mv.DestStageID, mv.DestIndex)
		if err == nil && at.ID == w.EnquiryID() {
			reverted, err := s.board.RevertLocalMove(mv)
			if err == nil {
				s.board = reverted
			}
		} else {
			// 看板在此期间被重新加载或又有移动，无法按位置撤销
			utils.Logger.Warn().
				Str("closingId", id).
				Str("enquiryId", w.EnquiryID()).
				Msg("看板已变化，跳过撤销移动")
		}
	}

	return &ClosingOutcome{Closing: w.Snapshot(), Board: s.board}, nil
}

// ExpireIdle 清理长时间未使用且没有正在提交的成交流程的会话
func (m *SessionManager) ExpireIdle(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxIdle)
	expired := 0
	for id, s := range m.sessions {
		if !s.lastUsed.Before(cutoff) {
			continue
		}
		if !s.mu.TryLock() {
			continue
		}
		busy := false
		for _, w := range s.closings {
			if w.State() == ClosingCommitting {
				busy = true
				break
			}
		}
		s.mu.Unlock()
		if busy {
			continue
		}
		delete(m.sessions, id)
		expired++
	}
	return expired
}
