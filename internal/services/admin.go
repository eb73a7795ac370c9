package services

import (
  "context"
  "fmt"

  "github.com/slotter-org/aristo-backend/internal/logger"
  "github.com/slotter-org/aristo-backend/internal/repos"
  "github.com/slotter-org/aristo-backend/internal/types"
)

type Overview struct {
  Users           int64            `json:"users"`
  Notes           int64            `json:"notes"`
  Resources       int64            `json:"resources"`
  RecentResources []types.Resource `json:"recentResources"`
  ActiveClients   int              `json:"activeClients"`
}

type AdminService struct {
  log          *logger.Logger
  userRepo     repos.UserRepo
  noteRepo     repos.NoteRepo
  resourceRepo repos.ResourceRepo
  clients      func() int
}

// NewAdminService builds the admin overview. clients reports live client stores and may be nil.
func NewAdminService(log *logger.Logger, userRepo repos.UserRepo, noteRepo repos.NoteRepo, resourceRepo repos.ResourceRepo, clients func() int) *AdminService {
  return &AdminService{
    log:          log.With("service", "AdminService"),
    userRepo:     userRepo,
    noteRepo:     noteRepo,
    resourceRepo: resourceRepo,
    clients:      clients,
  }
}

func (as *AdminService) Overview(ctx context.Context, recent int) (Overview, error) {
  var out Overview
  var err error
  if out.Users, err = as.userRepo.Count(ctx, nil); err != nil {
    return Overview{}, fmt.Errorf("count users: %w", err)
  }
  if out.Notes, err = as.noteRepo.Count(ctx, nil); err != nil {
    return Overview{}, fmt.Errorf("count notes: %w", err)
  }
  if out.Resources, err = as.resourceRepo.Count(ctx, nil); err != nil {
    return Overview{}, fmt.Errorf("count resources: %w", err)
  }
  if out.RecentResources, err = as.resourceRepo.ListRecent(ctx, nil, recent); err != nil {
    return Overview{}, fmt.Errorf("recent resources: %w", err)
  }
  if as.clients != nil {
    out.ActiveClients = as.clients()
  }
  return out, nil
}
