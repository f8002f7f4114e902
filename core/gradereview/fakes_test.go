package gradereview

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gjb2048/gradereviews/core"
)

type capKey struct {
	capability string
	ref        ContextRef
}

// fakeCaps grants capabilities to whoever is asking; tests build one per viewer.
type fakeCaps struct {
	mu             sync.Mutex
	viewSubmission map[int]bool // {userID: allowed}
	viewGroup      bool
	editGroup      bool
	caps           map[capKey]bool
	err            error
	calls          map[string]int
}

var _ CapabilityChecker = (*fakeCaps)(nil) // interface compliance check

func newFakeCaps() *fakeCaps {
	return &fakeCaps{
		viewSubmission: make(map[int]bool),
		caps:           make(map[capKey]bool),
		calls:          make(map[string]int),
	}
}

func (c *fakeCaps) grant(capability string, ref ContextRef) *fakeCaps {
	c.caps[capKey{capability, ref}] = true
	return c
}

func (c *fakeCaps) record(name string) {
	c.mu.Lock()
	c.calls[name]++
	c.mu.Unlock()
}

func (c *fakeCaps) callCount(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func (c *fakeCaps) CanViewSubmission(_ context.Context, _ Viewer, _, userID int) (bool, error) {
	c.record("CanViewSubmission")
	return c.viewSubmission[userID], c.err
}

func (c *fakeCaps) CanViewGroupSubmission(context.Context, Viewer, int, int) (bool, error) {
	c.record("CanViewGroupSubmission")
	return c.viewGroup, c.err
}

func (c *fakeCaps) CanEditGroupSubmission(context.Context, Viewer, int, int) (bool, error) {
	c.record("CanEditGroupSubmission")
	return c.editGroup, c.err
}

func (c *fakeCaps) HasCapability(_ context.Context, _ Viewer, capability string, ref ContextRef) (bool, error) {
	c.record("HasCapability:" + capability)
	if c.err != nil {
		return false, c.err
	}
	return c.caps[capKey{capability, ref}], nil
}

// fakeMappings hands out participant numbers in allocation order, or the preset ones.
type fakeMappings struct {
	mu      sync.Mutex
	numbers map[int]int // {userID: participant number}
	next    int
	calls   map[int]int // {userID: calls}
	err     error
}

var _ UserMappingRepository = (*fakeMappings)(nil) // interface compliance check

func newFakeMappings(preset map[int]int) *fakeMappings {
	m := &fakeMappings{numbers: make(map[int]int), calls: make(map[int]int)}
	for uid, num := range preset {
		m.numbers[uid] = num
		if num > m.next {
			m.next = num
		}
	}
	return m
}

func (m *fakeMappings) GetOrCreateUserMapping(_ context.Context, _, userID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[userID]++
	if m.err != nil {
		return 0, m.err
	}
	if num, ok := m.numbers[userID]; ok {
		return num, nil
	}
	m.next++
	m.numbers[userID] = m.next
	return m.next, nil
}

func (m *fakeMappings) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// in-memory repositories for the Service tests

type fakeStore struct {
	mu          sync.Mutex
	submissions map[int]Submission
	assignments map[int]AssignmentInstance // {contextID: assignment}
	users       map[int]User
	comments    map[int]Comment
	nextID      int
	deleted     []int
	err         error
}

var (
	_ SubmissionRepository = (*fakeStore)(nil)
	_ AssignmentRepository = (*fakeStore)(nil)
	_ CommentRepository    = (*fakeStore)(nil)
	_ UserRepository       = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		submissions: make(map[int]Submission),
		assignments: make(map[int]AssignmentInstance),
		users:       make(map[int]User),
		comments:    make(map[int]Comment),
	}
}

func (s *fakeStore) GetSubmission(_ context.Context, id int) (Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Submission{}, s.err
	}
	sub, ok := s.submissions[id]
	if !ok {
		return Submission{}, ErrSubmissionNotFound
	}
	return sub, nil
}

func (s *fakeStore) GetAssignmentByContext(_ context.Context, contextID int) (AssignmentInstance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inst, ok := s.assignments[contextID]
	if !ok {
		return AssignmentInstance{}, ErrAssignmentNotFound
	}
	return inst, nil
}

func (s *fakeStore) GetUser(_ context.Context, id int) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	usr, ok := s.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return usr, nil
}

func (s *fakeStore) AddComment(_ context.Context, cmt Comment) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	cmt.ID = s.nextID
	cmt.FullName = s.users[cmt.UserID].FullName()
	s.comments[cmt.ID] = cmt
	return cmt, nil
}

func (s *fakeStore) GetComment(_ context.Context, id int) (Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cmt, ok := s.comments[id]
	if !ok {
		return Comment{}, ErrCommentNotFound
	}
	return cmt, nil
}

func (s *fakeStore) ListComments(_ context.Context, filter CommentFilter) ([]Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var comments []Comment
	for _, cmt := range s.comments {
		if cmt.ContextID == filter.ContextID && cmt.Component == filter.Component &&
			cmt.Area == filter.Area && cmt.ItemID == filter.ItemID {
			comments = append(comments, cmt)
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].TimeCreated.Equal(comments[j].TimeCreated) {
			return comments[i].ID > comments[j].ID
		}
		return comments[i].TimeCreated.After(comments[j].TimeCreated)
	})
	return comments, nil
}

func (s *fakeStore) DeleteComment(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.comments, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeStore) addComment(id, contextID, itemID, userID int, content string, created time.Time) {
	s.comments[id] = Comment{
		ID:          id,
		ContextID:   contextID,
		Component:   Component,
		Area:        AreaGradeReviews,
		ItemID:      itemID,
		UserID:      userID,
		Content:     content,
		TimeCreated: created,
		FullName:    s.users[userID].FullName(),
	}
	if id > s.nextID {
		s.nextID = id
	}
}

type fakeSink struct {
	events []Triggerable
}

func (s *fakeSink) Trigger(ev Triggerable) { s.events = append(s.events, ev) }

type fakeLogger struct {
	warnings []string
}

func (l *fakeLogger) Debug(string, ...interface{})      {}
func (l *fakeLogger) Info(string, ...interface{})       {}
func (l *fakeLogger) Warn(msg string, _ ...interface{}) { l.warnings = append(l.warnings, msg) }
func (l *fakeLogger) Error(string, ...interface{})      {}
func (l *fakeLogger) Fatal(string, ...interface{})      {}

type fakeMailer struct {
	messages []*core.EmailMessage
}

func (m *fakeMailer) SendMessages(messages ...*core.EmailMessage) {
	m.messages = append(m.messages, messages...)
}
