package types

import "fmt"

type AppView string

const (
  ViewLanding   AppView = "landing"
  ViewDashboard AppView = "dashboard"
  ViewNotes     AppView = "notes"
  ViewReadNote  AppView = "read_note"
  ViewAdmin     AppView = "admin"
  ViewResources AppView = "resources"
  ViewProfile   AppView = "profile"
  ViewAIHub     AppView = "ai_hub"
)

var AllViews = []AppView{
  ViewLanding, ViewDashboard, ViewNotes, ViewReadNote,
  ViewAdmin, ViewResources, ViewProfile, ViewAIHub,
}

func ParseAppView(s string) (AppView, error) {
  for _, v := range AllViews {
    if string(v) == s {
      return v, nil
    }
  }
  return "", fmt.Errorf("unknown view %q", s)
}

// IsPublic reports whether the view can be shown without a signed-in user.
func (v AppView) IsPublic() bool {
  return v == ViewLanding
}

// KeepsSelectedNote reports whether navigating to v keeps the selected note.
func (v AppView) KeepsSelectedNote() bool {
  return v == ViewNotes || v == ViewReadNote
}
