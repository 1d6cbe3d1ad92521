package usecase_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ErlanBelekov/task-tracker/internal/domain"
	"github.com/ErlanBelekov/task-tracker/internal/repository"
)

// ---- users ----

type memUsers struct {
	mu     sync.Mutex
	byID   map[string]*domain.User
	nextID int
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]*domain.User{}} }

func (r *memUsers) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return nil, domain.ErrEmailTaken
		}
		if existing.Username == u.Username {
			return nil, domain.ErrUsernameTaken
		}
	}
	r.nextID++
	c := *u
	c.ID = fmt.Sprintf("user-%d", r.nextID)
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (r *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (r *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *memUsers) SetRefreshToken(_ context.Context, userID string, token *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.RefreshToken = token
	return nil
}

func (r *memUsers) RotateRefreshToken(_ context.Context, userID, oldToken, newToken string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != oldToken {
		return false, nil
	}
	u.RefreshToken = &newToken
	return true, nil
}

func (r *memUsers) SetSingleUseToken(_ context.Context, userID string, purpose domain.SingleUsePurpose, hash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	switch purpose {
	case domain.PurposeEmailVerification:
		u.EmailVerificationTokenHash, u.EmailVerificationExpiry = &hash, &expiresAt
	case domain.PurposePasswordReset:
		u.ForgotPasswordTokenHash, u.ForgotPasswordExpiry = &hash, &expiresAt
	}
	return nil
}

func (r *memUsers) ConsumeEmailVerification(_ context.Context, hash string, now time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.EmailVerificationTokenHash != nil && *u.EmailVerificationTokenHash == hash && u.EmailVerificationExpiry.After(now) {
			u.IsEmailVerified = true
			u.EmailVerificationTokenHash, u.EmailVerificationExpiry = nil, nil
			out := *u
			return &out, nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (r *memUsers) ConsumePasswordReset(_ context.Context, hash, newPasswordHash string, now time.Time) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.ForgotPasswordTokenHash != nil && *u.ForgotPasswordTokenHash == hash && u.ForgotPasswordExpiry.After(now) {
			u.PasswordHash = newPasswordHash
			u.ForgotPasswordTokenHash, u.ForgotPasswordExpiry = nil, nil
			u.RefreshToken = nil
			out := *u
			return &out, nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (r *memUsers) UpdatePassword(_ context.Context, userID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.PasswordHash = hash
	u.RefreshToken = nil
	return nil
}

// put stores u as-is, for seeding.
func (r *memUsers) put(u *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *u
	r.byID[u.ID] = &c
}

func (r *memUsers) delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

// ---- memberships ----

type memMembers struct {
	mu    sync.Mutex
	roles map[string]map[string]domain.Role // project -> user -> role
	// err, when set, is returned by Get.
	err error
}

func newMemMembers() *memMembers { return &memMembers{roles: map[string]map[string]domain.Role{}} }

func (r *memMembers) set(projectID, userID string, role domain.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.roles[projectID] == nil {
		r.roles[projectID] = map[string]domain.Role{}
	}
	r.roles[projectID][userID] = role
}

func (r *memMembers) Get(_ context.Context, projectID, userID string) (*domain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	role, ok := r.roles[projectID][userID]
	if !ok {
		return nil, domain.ErrMemberNotFound
	}
	return &domain.Membership{ProjectID: projectID, UserID: userID, Role: role}, nil
}

func (r *memMembers) Add(_ context.Context, m *domain.Membership) (*domain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[m.ProjectID][m.UserID]; ok {
		return nil, domain.ErrAlreadyMember
	}
	if r.roles[m.ProjectID] == nil {
		r.roles[m.ProjectID] = map[string]domain.Role{}
	}
	r.roles[m.ProjectID][m.UserID] = m.Role
	out := *m
	return &out, nil
}

func (r *memMembers) List(_ context.Context, projectID string) ([]*domain.MemberView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.MemberView
	for userID, role := range r.roles[projectID] {
		out = append(out, &domain.MemberView{Membership: domain.Membership{ProjectID: projectID, UserID: userID, Role: role}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *memMembers) admins(projectID string) int {
	n := 0
	for _, role := range r.roles[projectID] {
		if role == domain.RoleAdmin {
			n++
		}
	}
	return n
}

func (r *memMembers) UpdateRole(_ context.Context, projectID, userID string, role domain.Role) (*domain.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.roles[projectID][userID]
	if !ok {
		return nil, domain.ErrMemberNotFound
	}
	if current == domain.RoleAdmin && role != domain.RoleAdmin && r.admins(projectID) <= 1 {
		return nil, domain.ErrLastAdmin
	}
	r.roles[projectID][userID] = role
	return &domain.Membership{ProjectID: projectID, UserID: userID, Role: role}, nil
}

func (r *memMembers) Remove(_ context.Context, projectID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.roles[projectID][userID]
	if !ok {
		return domain.ErrMemberNotFound
	}
	if current == domain.RoleAdmin && r.admins(projectID) <= 1 {
		return domain.ErrLastAdmin
	}
	delete(r.roles[projectID], userID)
	return nil
}

// ---- projects ----

type memProjects struct {
	mu      sync.Mutex
	members *memMembers
	byID    map[string]*domain.Project
	nextID  int
	keys    map[string][]string // attachment keys returned on delete
	deleted []string
}

func newMemProjects(members *memMembers) *memProjects {
	return &memProjects{members: members, byID: map[string]*domain.Project{}, keys: map[string][]string{}}
}

func (r *memProjects) CreateWithAdmin(_ context.Context, p *domain.Project) (*domain.Project, error) {
	r.mu.Lock()
	for _, existing := range r.byID {
		if existing.Name == p.Name {
			r.mu.Unlock()
			return nil, domain.ErrProjectNameTaken
		}
	}
	r.nextID++
	c := *p
	c.ID = fmt.Sprintf("project-%d", r.nextID)
	r.byID[c.ID] = &c
	r.mu.Unlock()

	r.members.set(c.ID, c.CreatedBy, domain.RoleAdmin)
	out := c
	return &out, nil
}

func (r *memProjects) GetByID(_ context.Context, id string) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrProjectNotFound
	}
	out := *p
	return &out, nil
}

func (r *memProjects) ListByMember(ctx context.Context, userID string) ([]*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Project
	for id, p := range r.byID {
		if _, err := r.members.Get(ctx, id, userID); err == nil {
			c := *p
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memProjects) Update(_ context.Context, p *domain.Project) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, existing := range r.byID {
		if id != p.ID && existing.Name == p.Name {
			return nil, domain.ErrProjectNameTaken
		}
	}
	c := *p
	r.byID[p.ID] = &c
	return p, nil
}

func (r *memProjects) Delete(_ context.Context, id string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return nil, domain.ErrProjectNotFound
	}
	delete(r.byID, id)
	r.deleted = append(r.deleted, id)
	return r.keys[id], nil
}

// ---- tasks ----

type memTasks struct {
	mu     sync.Mutex
	byID   map[string]*domain.Task
	nextID int
	keys   map[string][]string
	// lastList captures the input of the most recent List call.
	lastList repository.ListTasksInput
	// beforeSave runs under the lock ahead of each Save, standing in for a
	// concurrent writer.
	beforeSave func(stored *domain.Task)
}

func newMemTasks() *memTasks { return &memTasks{byID: map[string]*domain.Task{}, keys: map[string][]string{}} }

func (r *memTasks) Create(_ context.Context, t *domain.Task) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c := *t
	c.ID = fmt.Sprintf("task-%d", r.nextID)
	r.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (r *memTasks) GetByID(_ context.Context, id string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	out := *t
	return &out, nil
}

func (r *memTasks) List(_ context.Context, in repository.ListTasksInput) ([]*domain.Task, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastList = in
	var all []*domain.Task
	for _, t := range r.byID {
		if in.ProjectID != "" && t.ProjectID != in.ProjectID {
			continue
		}
		if in.UserID != "" && t.AssignedTo != in.UserID && t.AssignedBy != in.UserID {
			continue
		}
		if in.Status != "" && t.Status != in.Status {
			continue
		}
		if in.Search != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(in.Search)) {
			continue
		}
		c := *t
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	if in.Offset >= len(all) {
		return []*domain.Task{}, total, nil
	}
	end := min(in.Offset+in.Limit, len(all))
	return all[in.Offset:end], total, nil
}

func (r *memTasks) Save(_ context.Context, t *domain.Task, resetReminder bool) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[t.ID]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	if r.beforeSave != nil {
		r.beforeSave(stored)
	}
	c := *t
	c.Attachments = nil
	c.ReminderSent = stored.ReminderSent && !resetReminder
	r.byID[t.ID] = &c
	out := c
	return &out, nil
}

func (r *memTasks) Delete(_ context.Context, id string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return nil, domain.ErrTaskNotFound
	}
	delete(r.byID, id)
	return r.keys[id], nil
}

func (r *memTasks) ListDueForReminder(context.Context, time.Time, int) ([]*domain.DueReminder, error) {
	return nil, nil
}

func (r *memTasks) MarkReminderSent(context.Context, string, time.Time) (bool, error) {
	return false, nil
}

func (r *memTasks) MarkReminderAttempted(context.Context, string) error { return nil }

func (r *memTasks) put(t *domain.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *t
	r.byID[t.ID] = &c
}

// ---- attachments ----

type memAttachments struct {
	mu     sync.Mutex
	items  []domain.Attachment
	nextID int
	addErr error
}

func (r *memAttachments) Add(_ context.Context, a *domain.Attachment) (*domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addErr != nil {
		return nil, r.addErr
	}
	r.nextID++
	c := *a
	c.ID = fmt.Sprintf("att-%d", r.nextID)
	r.items = append(r.items, c)
	return &c, nil
}

func (r *memAttachments) ListByTask(_ context.Context, taskID string) ([]domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.Attachment{}
	for _, a := range r.items {
		if a.TaskID == taskID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAttachments) Get(_ context.Context, taskID, id string) (*domain.Attachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if a.ID == id && a.TaskID == taskID {
			c := a
			return &c, nil
		}
	}
	return nil, domain.ErrAttachmentNotFound
}

func (r *memAttachments) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, a := range r.items {
		if a.ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return domain.ErrAttachmentNotFound
}

// ---- notes & subtasks ----

type memNotes struct {
	mu     sync.Mutex
	byID   map[string]*domain.Note
	nextID int
}

func newMemNotes() *memNotes { return &memNotes{byID: map[string]*domain.Note{}} }

func (r *memNotes) Create(_ context.Context, n *domain.Note) (*domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c := *n
	c.ID = fmt.Sprintf("note-%d", r.nextID)
	r.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (r *memNotes) GetByID(_ context.Context, id string) (*domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNoteNotFound
	}
	out := *n
	return &out, nil
}

func (r *memNotes) ListByTask(_ context.Context, taskID string) ([]*domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Note{}
	for _, n := range r.byID {
		if n.TaskID == taskID {
			c := *n
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memNotes) UpdateContent(_ context.Context, id, content string) (*domain.Note, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNoteNotFound
	}
	n.Content = content
	out := *n
	return &out, nil
}

func (r *memNotes) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrNoteNotFound
	}
	delete(r.byID, id)
	return nil
}

type memSubtasks struct {
	mu     sync.Mutex
	byID   map[string]*domain.Subtask
	nextID int
}

func newMemSubtasks() *memSubtasks { return &memSubtasks{byID: map[string]*domain.Subtask{}} }

func (r *memSubtasks) Create(_ context.Context, s *domain.Subtask) (*domain.Subtask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	c := *s
	c.ID = fmt.Sprintf("subtask-%d", r.nextID)
	r.byID[c.ID] = &c
	out := c
	return &out, nil
}

func (r *memSubtasks) GetByID(_ context.Context, id string) (*domain.Subtask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrSubtaskNotFound
	}
	out := *s
	return &out, nil
}

func (r *memSubtasks) ListByTask(_ context.Context, taskID string) ([]*domain.Subtask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*domain.Subtask{}
	for _, s := range r.byID {
		if s.TaskID == taskID {
			c := *s
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memSubtasks) Toggle(_ context.Context, id string) (*domain.Subtask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrSubtaskNotFound
	}
	s.IsCompleted = !s.IsCompleted
	out := *s
	return &out, nil
}

func (r *memSubtasks) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return domain.ErrSubtaskNotFound
	}
	delete(r.byID, id)
	return nil
}

// ---- email & storage ----

type sentEmail struct {
	To, Subject, Body string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (s *fakeSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentEmail{To: to, Subject: subject, Body: body})
	return nil
}

func (s *fakeSender) last() sentEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sent) == 0 {
		return sentEmail{}
	}
	return s.sent[len(s.sent)-1]
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string][]byte{}} }

func (s *fakeStore) Put(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return "https://files.example.com/" + key, nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

// tokenFromBody pulls the raw token out of the first ?token= link in an email.
func tokenFromBody(body string) string {
	idx := strings.Index(body, "?token=")
	if idx == -1 {
		return ""
	}
	return strings.SplitN(body[idx+len("?token="):], `"`, 2)[0]
}
