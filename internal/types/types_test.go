package types

import (
  "testing"

  "github.com/stretchr/testify/assert"
  "github.com/stretchr/testify/require"
)

func TestParseAppView(t *testing.T) {
  for _, v := range AllViews {
    got, err := ParseAppView(string(v))
    require.NoError(t, err)
    assert.Equal(t, v, got)
  }
  _, err := ParseAppView("settings")
  assert.Error(t, err)
}

func TestViewPredicates(t *testing.T) {
  assert.True(t, ViewLanding.IsPublic())
  assert.False(t, ViewDashboard.IsPublic())
  assert.True(t, ViewNotes.KeepsSelectedNote())
  assert.True(t, ViewReadNote.KeepsSelectedNote())
  assert.False(t, ViewResources.KeepsSelectedNote())
}

func TestResourceClassification(t *testing.T) {
  assert.Equal(t, ResourceTypePDF, ResourceTypeForMIME("application/pdf"))
  assert.Equal(t, ResourceTypeVideo, ResourceTypeForMIME("video/mp4"))
  assert.Equal(t, ResourceTypeVideo, ResourceTypeForMIME(""))
  assert.Equal(t, "2.0 MB", FormatSizeMB(2*1024*1024))
  assert.Equal(t, "0.5 MB", FormatSizeMB(512*1024))
}

func TestProfileUpdateApply(t *testing.T) {
  u := &User{Name: "Scholar", Gender: GenderOther, Bio: "old"}
  name := "Nadia"
  g := Gender("FEMALE")
  upd := ProfileUpdate{Name: &name, Gender: &g}

  assert.False(t, upd.IsEmpty())
  upd.ApplyTo(u)
  assert.Equal(t, "Nadia", u.Name)
  assert.Equal(t, GenderFemale, u.Gender)
  assert.Equal(t, "old", u.Bio)
  assert.Equal(t, map[string]interface{}{"name": "Nadia", "gender": "female"}, upd.Fields())
  assert.True(t, ProfileUpdate{}.IsEmpty())
}

func TestAppStateCurrentSession(t *testing.T) {
  id := "b"
  st := AppState{
    ChatSessions:     []ChatSession{{ID: "a"}, {ID: "b", Title: "second"}},
    CurrentSessionID: &id,
  }
  sess, ok := st.CurrentSession()
  require.True(t, ok)
  assert.Equal(t, "second", sess.Title)

  st.CurrentSessionID = nil
  _, ok = st.CurrentSession()
  assert.False(t, ok)
}
