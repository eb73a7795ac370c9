package state

import (
  "context"
  "errors"
  "sync"
  "time"

  "github.com/google/uuid"

  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/types"
)

const (
  NewChatTitle   = "নতুন আলোচনা"
  WelcomeMessage = "স্বাগতম! আমি অ্যারিস্টো। আমি কীভাবে সাহায্য করতে পারি?"

  sessionTitleRunes = 30
  remoteTimeout     = 30 * time.Second
)

var ErrNoUser = errors.New("no signed-in user")

type Options struct {
  Persistence Persistence
  Identity    Identity
  Log         *logger.Logger
  // Run starts a detached continuation. Defaults to a new goroutine.
  Run   func(func())
  Now   func() time.Time
  NewID func() string
}

func (o Options) withDefaults() Options {
  if o.Log == nil {
    o.Log = logger.NewNop()
  }
  if o.Run == nil {
    o.Run = func(f func()) { go f() }
  }
  if o.Now == nil {
    o.Now = time.Now
  }
  if o.NewID == nil {
    o.NewID = uuid.NewString
  }
  return o
}

// Store is the state of one client: what it is looking at, who is signed in, and the
// collections shown on screen. Every action holds the lock for its whole mutation so
// readers never see half an update.
type Store struct {
  id     string
  opts   Options
  log    *logger.Logger
  writes *writeQueue

  mu               sync.Mutex
  view             types.AppView
  user             *types.User
  sessions         []types.ChatSession
  currentSessionID *string
  notes            []types.Note
  selectedNoteID   *string
  resources        []types.Resource
  chatOpen         bool
  authModalOpen    bool
  voiceActive      bool
  lastSeen         time.Time
}

func NewStore(id string, opts Options) *Store {
  opts = opts.withDefaults()
  return &Store{
    id:       id,
    opts:     opts,
    log:      opts.Log.With("clientID", id),
    writes:   newWriteQueue(opts.Run),
    view:     types.ViewLanding,
    lastSeen: opts.Now(),
  }
}

func (s *Store) ID() string {
  return s.id
}

func (s *Store) nowMillis() int64 {
  return s.opts.Now().UnixMilli()
}

func (s *Store) touch() {
  s.mu.Lock()
  s.lastSeen = s.opts.Now()
  s.mu.Unlock()
}

func (s *Store) LastSeen() time.Time {
  s.mu.Lock()
  defer s.mu.Unlock()
  return s.lastSeen
}

// Snapshot returns a deep copy of the state.
func (s *Store) Snapshot() types.AppState {
  s.mu.Lock()
  defer s.mu.Unlock()
  st := types.AppState{
    ClientID:        s.id,
    CurrentView:     s.view,
    ChatSessions:    make([]types.ChatSession, 0, len(s.sessions)),
    Notes:           append([]types.Note{}, s.notes...),
    Resources:       append([]types.Resource{}, s.resources...),
    IsChatOpen:      s.chatOpen,
    IsAuthModalOpen: s.authModalOpen,
    IsVoiceActive:   s.voiceActive,
  }
  if s.user != nil {
    u := *s.user
    st.User = &u
  }
  for _, sess := range s.sessions {
    st.ChatSessions = append(st.ChatSessions, sess.Clone())
  }
  if s.currentSessionID != nil {
    id := *s.currentSessionID
    st.CurrentSessionID = &id
  }
  if s.selectedNoteID != nil {
    id := *s.selectedNoteID
    st.SelectedNoteID = &id
  }
  return st
}

// User returns a copy of the signed-in user, or nil.
func (s *Store) User() *types.User {
  s.mu.Lock()
  defer s.mu.Unlock()
  if s.user == nil {
    return nil
  }
  u := *s.user
  return &u
}

//--------------------------------------------------------------------------------
// Navigation
//--------------------------------------------------------------------------------

// SetView navigates to view. Without a user only the landing view is reachable; any other
// target opens the auth prompt instead and SetView reports false.
func (s *Store) SetView(view types.AppView) bool {
  s.mu.Lock()
  defer s.mu.Unlock()
  if s.user == nil && !view.IsPublic() {
    s.authModalOpen = true
    return false
  }
  s.view = view
  if !view.KeepsSelectedNote() {
    s.selectedNoteID = nil
  }
  return true
}

// SetUser binds user to the client (nil unbinds and empties the collections). A non-nil
// user also starts a background load of that user's notes and resources.
func (s *Store) SetUser(user *types.User) {
  s.mu.Lock()
  s.authModalOpen = false
  if user == nil {
    s.user = nil
    s.view = types.ViewLanding
    s.clearCollectionsLocked()
    s.mu.Unlock()
    return
  }
  u := *user
  // a different account never inherits what the previous one had on screen
  if !s.boundTo(u.ID) {
    s.clearCollectionsLocked()
  }
  s.user = &u
  s.view = types.ViewDashboard
  s.mu.Unlock()

  s.fetchUserData(u.ID)
}

func (s *Store) clearCollectionsLocked() {
  s.sessions = nil
  s.currentSessionID = nil
  s.notes = nil
  s.resources = nil
  s.selectedNoteID = nil
}

func (s *Store) boundTo(userID uuid.UUID) bool {
  return s.user != nil && s.user.ID == userID
}

func (s *Store) fetchUserData(userID uuid.UUID) {
  if s.opts.Persistence == nil {
    return
  }
  s.opts.Run(func() {
    ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
    defer cancel()

    notes, err := s.opts.Persistence.FetchNotes(ctx, userID)
    if err != nil {
      s.log.Warn("Failed to fetch notes for user", "userID", userID, "error", err)
    } else {
      s.mu.Lock()
      if s.boundTo(userID) {
        s.notes = notes
      }
      s.mu.Unlock()
    }

    resources, err := s.opts.Persistence.FetchResources(ctx, userID)
    if err != nil {
      s.log.Warn("Failed to fetch resources for user", "userID", userID, "error", err)
      return
    }
    s.mu.Lock()
    if s.boundTo(userID) {
      s.resources = resources
    }
    s.mu.Unlock()
  })
}

// Logout signs out through the identity service and then clears the client no matter how
// the sign-out went.
func (s *Store) Logout(ctx context.Context) {
  if s.opts.Identity != nil {
    if err := s.opts.Identity.SignOut(ctx); err != nil {
      s.log.Warn("Sign out failed, clearing local state anyway", "error", err)
    }
  }
  s.mu.Lock()
  defer s.mu.Unlock()
  s.user = nil
  s.view = types.ViewLanding
  s.clearCollectionsLocked()
}

func (s *Store) SetChatOpen(open bool) {
  s.mu.Lock()
  s.chatOpen = open
  s.mu.Unlock()
}

func (s *Store) SetAuthModalOpen(open bool) {
  s.mu.Lock()
  s.authModalOpen = open
  s.mu.Unlock()
}

func (s *Store) SetVoiceActive(active bool) {
  s.mu.Lock()
  s.voiceActive = active
  s.mu.Unlock()
}

//--------------------------------------------------------------------------------
// Chat
//--------------------------------------------------------------------------------

// StartNewChat puts a fresh session with the welcome message at the top of the list and
// makes it current.
func (s *Store) StartNewChat() types.ChatSession {
  s.mu.Lock()
  defer s.mu.Unlock()
  now := s.nowMillis()
  sess := types.ChatSession{
    ID:    s.opts.NewID(),
    Title: NewChatTitle,
    Messages: []types.ChatMessage{{
      ID:        s.opts.NewID(),
      Role:      types.ChatRoleAssistant,
      Content:   WelcomeMessage,
      Timestamp: now,
    }},
    LastUpdated: now,
  }
  s.sessions = append([]types.ChatSession{sess}, s.sessions...)
  id := sess.ID
  s.currentSessionID = &id
  return sess.Clone()
}

func (s *Store) currentIndexLocked() int {
  if s.currentSessionID == nil {
    return -1
  }
  for i := range s.sessions {
    if s.sessions[i].ID == *s.currentSessionID {
      return i
    }
  }
  return -1
}

// AddMessage appends msg to the current session and reports whether there was one.
// The first user message of a session names it.
func (s *Store) AddMessage(msg types.ChatMessage) bool {
  s.mu.Lock()
  defer s.mu.Unlock()
  idx := s.currentIndexLocked()
  if idx < 0 {
    return false
  }
  if msg.ID == "" {
    msg.ID = s.opts.NewID()
  }
  if msg.Timestamp == 0 {
    msg.Timestamp = s.nowMillis()
  }
  sess := &s.sessions[idx]
  if msg.Role == types.ChatRoleUser && len(sess.Messages) <= 1 {
    sess.Title = sessionTitle(msg.Content)
  }
  sess.Messages = append(sess.Messages, msg)
  sess.LastUpdated = s.nowMillis()
  return true
}

func sessionTitle(content string) string {
  r := []rune(content)
  if len(r) > sessionTitleRunes {
    r = r[:sessionTitleRunes]
  }
  return string(r) + "..."
}

// UpdateLastMessage replaces the content of the current session's last message.
func (s *Store) UpdateLastMessage(content string) bool {
  s.mu.Lock()
  defer s.mu.Unlock()
  idx := s.currentIndexLocked()
  if idx < 0 || len(s.sessions[idx].Messages) == 0 {
    return false
  }
  msgs := s.sessions[idx].Messages
  msgs[len(msgs)-1].Content = content
  return true
}

// DeleteMessage removes a message from the current session only.
func (s *Store) DeleteMessage(id string) {
  s.mu.Lock()
  defer s.mu.Unlock()
  idx := s.currentIndexLocked()
  if idx < 0 {
    return
  }
  kept := s.sessions[idx].Messages[:0]
  for _, m := range s.sessions[idx].Messages {
    if m.ID != id {
      kept = append(kept, m)
    }
  }
  s.sessions[idx].Messages = kept
}

func (s *Store) SetCurrentSession(id string) {
  s.mu.Lock()
  defer s.mu.Unlock()
  s.currentSessionID = &id
}

func (s *Store) DeleteSession(id string) {
  s.mu.Lock()
  defer s.mu.Unlock()
  kept := make([]types.ChatSession, 0, len(s.sessions))
  for _, sess := range s.sessions {
    if sess.ID != id {
      kept = append(kept, sess)
    }
  }
  s.sessions = kept
  if s.currentSessionID != nil && *s.currentSessionID == id {
    s.currentSessionID = nil
  }
}

//--------------------------------------------------------------------------------
// Notes
//--------------------------------------------------------------------------------

// EditNote opens the editor on id; an empty id opens it on a new note.
func (s *Store) EditNote(id string) {
  s.mu.Lock()
  defer s.mu.Unlock()
  if id == "" {
    s.selectedNoteID = nil
  } else {
    s.selectedNoteID = &id
  }
  s.view = types.ViewNotes
}

func (s *Store) ReadNote(id string) {
  s.mu.Lock()
  defer s.mu.Unlock()
  s.selectedNoteID = &id
  s.view = types.ViewReadNote
}

// UpsertNote replaces the note with the same id in place, or puts a new one first, then
// saves it remotely in the background. The local change is never rolled back.
func (s *Store) UpsertNote(ctx context.Context, note types.Note) (types.Note, error) {
  s.mu.Lock()
  if s.user == nil {
    s.mu.Unlock()
    return types.Note{}, ErrNoUser
  }
  userID := s.user.ID
  if note.ID == "" {
    note.ID = s.opts.NewID()
  }
  if note.Title == "" {
    note.Title = types.DefaultNoteTitle
  }
  if note.LastModified == 0 {
    note.LastModified = s.nowMillis()
  }
  note.AuthorID = userID

  replaced := false
  for i := range s.notes {
    if s.notes[i].ID == note.ID {
      s.notes[i] = note
      replaced = true
      break
    }
  }
  if !replaced {
    s.notes = append([]types.Note{note}, s.notes...)
  }
  s.mu.Unlock()

  s.remote(ctx, "note:"+note.ID, func(rctx context.Context) error {
    if s.opts.Persistence == nil {
      return nil
    }
    return s.opts.Persistence.UpsertNote(rctx, userID, note)
  })
  return note, nil
}

func (s *Store) DeleteNote(ctx context.Context, id string) {
  s.mu.Lock()
  kept := make([]types.Note, 0, len(s.notes))
  for _, n := range s.notes {
    if n.ID != id {
      kept = append(kept, n)
    }
  }
  s.notes = kept
  if s.user == nil {
    s.mu.Unlock()
    return
  }
  userID := s.user.ID
  s.mu.Unlock()

  s.remote(ctx, "note:"+id, func(rctx context.Context) error {
    if s.opts.Persistence == nil {
      return nil
    }
    return s.opts.Persistence.DeleteNote(rctx, userID, id)
  })
}

//--------------------------------------------------------------------------------
// Resources
//--------------------------------------------------------------------------------

// AddResource appends resource to the library and inserts it remotely in the background.
func (s *Store) AddResource(ctx context.Context, resource types.Resource) (types.Resource, error) {
  s.mu.Lock()
  if s.user == nil {
    s.mu.Unlock()
    return types.Resource{}, ErrNoUser
  }
  userID := s.user.ID
  if resource.ID == "" {
    resource.ID = s.opts.NewID()
  }
  if resource.UploadedAt == 0 {
    resource.UploadedAt = s.nowMillis()
  }
  resource.UserID = userID
  s.resources = append(s.resources, resource)
  s.mu.Unlock()

  s.remote(ctx, "resource:"+resource.ID, func(rctx context.Context) error {
    if s.opts.Persistence == nil {
      return nil
    }
    return s.opts.Persistence.InsertResource(rctx, userID, resource)
  })
  return resource, nil
}

func (s *Store) DeleteResource(ctx context.Context, id string) {
  s.mu.Lock()
  kept := make([]types.Resource, 0, len(s.resources))
  for _, r := range s.resources {
    if r.ID != id {
      kept = append(kept, r)
    }
  }
  s.resources = kept
  if s.user == nil {
    s.mu.Unlock()
    return
  }
  userID := s.user.ID
  s.mu.Unlock()

  s.remote(ctx, "resource:"+id, func(rctx context.Context) error {
    if s.opts.Persistence == nil {
      return nil
    }
    return s.opts.Persistence.DeleteResource(rctx, userID, id)
  })
}

//--------------------------------------------------------------------------------
// Profile
//--------------------------------------------------------------------------------

// UpdateProfile merges update into the local user right away and pushes it to the identity
// service in the background.
func (s *Store) UpdateProfile(ctx context.Context, update types.ProfileUpdate) (types.User, error) {
  s.mu.Lock()
  if s.user == nil {
    s.mu.Unlock()
    return types.User{}, ErrNoUser
  }
  update.ApplyTo(s.user)
  updated := *s.user
  s.mu.Unlock()

  s.remote(ctx, "profile:"+updated.ID.String(), func(rctx context.Context) error {
    if s.opts.Identity == nil {
      return nil
    }
    return s.opts.Identity.UpdateProfile(rctx, updated.ID, update)
  })
  return updated, nil
}

// remote queues a write behind earlier writes to the same key. Failures are logged only.
func (s *Store) remote(ctx context.Context, key string, write func(context.Context) error) {
  parent := context.WithoutCancel(ctx)
  s.writes.Enqueue(key, func() {
    rctx, cancel := context.WithTimeout(parent, remoteTimeout)
    defer cancel()
    if err := write(rctx); err != nil {
      s.log.Warn("Remote write failed, local state kept", "key", key, "error", err)
    }
  })
}

// PendingWrites reports how many entities still have remote writes in flight.
func (s *Store) PendingWrites() int {
  return s.writes.Pending()
}
