package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/playperu/questboard/internal/feedback"
	"github.com/playperu/questboard/internal/leaderboard"
	"github.com/playperu/questboard/internal/player"
	"github.com/playperu/questboard/internal/quest"
	"github.com/playperu/questboard/internal/questboard"
)

func TestAdminLoginGoodCredentials(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/admin/login", AdminLoginRequest{Email: "Admin@PlayPeru.com", Password: "changeme"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := decode[AdminMeResponse](t, w)
	if resp.Email != "admin@playperu.com" {
		t.Errorf("expected email admin@playperu.com, got %q", resp.Email)
	}

	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == adminCookieName && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Error("expected admin_session cookie to be set")
	}
}

func TestAdminLoginRejected(t *testing.T) {
	tests := []struct {
		name       string
		req        AdminLoginRequest
		wantStatus int
	}{
		{"wrong password", AdminLoginRequest{Email: "admin@playperu.com", Password: "wrong"}, http.StatusUnauthorized},
		{"unknown email", AdminLoginRequest{Email: "nobody@example.com", Password: "changeme"}, http.StatusUnauthorized},
		{"empty", AdminLoginRequest{}, http.StatusBadRequest},
	}

	env := newTestEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/admin/login", tt.req, nil)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestAdminMeAndLogout(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(http.MethodGet, "/api/admin/me", nil, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated me: expected 401, got %d", w.Code)
	}

	cookies := env.login()
	w := env.do(http.MethodGet, "/api/admin/me", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", w.Code)
	}
	if me := decode[AdminMeResponse](t, w); me.Name != "Admin" {
		t.Errorf("name = %q, want Admin", me.Name)
	}

	if w := env.do(http.MethodPost, "/api/admin/logout", nil, cookies); w.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/api/admin/me", nil, cookies); w.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: expected 401, got %d", w.Code)
	}
}

func TestAdminPlayersCRUD(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login()

	w := env.do(http.MethodPost, "/api/admin/players", player.CreateInput{Name: "Cami", Email: "CAMI@example.com", Experience: 250}, cookies)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode[questboard.Player](t, w)
	if created.Email != "cami@example.com" || created.Level != 2 || created.Experience != 150 {
		t.Errorf("unexpected player: %+v", created)
	}

	w = env.do(http.MethodPost, "/api/admin/players", player.CreateInput{Name: "Dup", Email: "cami@example.com"}, cookies)
	if w.Code != http.StatusBadRequest {
		t.Errorf("duplicate email: expected 400, got %d", w.Code)
	}
	w = env.do(http.MethodPost, "/api/admin/players", player.CreateInput{Name: "Bad", Email: "not-an-email"}, cookies)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad email: expected 400, got %d", w.Code)
	}

	name := "Camila"
	w = env.do(http.MethodPatch, "/api/admin/players/"+created.ID, player.UpdateInput{Name: &name}, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := decode[questboard.Player](t, w); got.Name != "Camila" {
		t.Errorf("name = %q, want Camila", got.Name)
	}

	w = env.do(http.MethodGet, "/api/admin/players", nil, cookies)
	if list := decode[[]questboard.Player](t, w); len(list) != 3 || list[0].Name != "Ana" {
		t.Errorf("unexpected list: %+v", list)
	}

	w = env.do(http.MethodPost, "/api/admin/players/"+created.ID+"/token", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("token: expected 200, got %d", w.Code)
	}
	tok := decode[PlayerTokenResponse](t, w)
	if pid, err := env.deps.Tokens.Verify(tok.Token); err != nil || pid != created.ID {
		t.Errorf("issued token resolves to %q, %v", pid, err)
	}

	if w := env.do(http.MethodDelete, "/api/admin/players/"+created.ID, nil, cookies); w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/api/admin/players/"+created.ID, nil, cookies); w.Code != http.StatusNotFound {
		t.Errorf("get deleted: expected 404, got %d", w.Code)
	}
}

func TestAdminLeaderboard(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login()

	w := env.do(http.MethodGet, "/api/admin/leaderboard", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	entries := decode[[]leaderboard.Entry](t, w)
	if len(entries) != 2 || entries[0].PlayerID != "u2" || entries[0].Rank != 1 {
		t.Errorf("unexpected leaderboard: %+v", entries)
	}

	if w := env.do(http.MethodGet, "/api/admin/leaderboard?limit=0", nil, cookies); w.Code != http.StatusBadRequest {
		t.Errorf("limit=0: expected 400, got %d", w.Code)
	}
}

func TestQuestApprovalFlow(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login()

	w := env.do(http.MethodPost, "/api/admin/quests", quest.CreateInput{
		Name:    "Visit the museum",
		Players: []string{"u1", "ghost"},
		Reward:  questboard.Reward{XP: 150, Points: 10},
	}, cookies)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	batch := decode[quest.BatchResult](t, w)
	if len(batch.Created) != 1 || len(batch.Failures) != 1 || batch.Failures[0].PlayerID != "ghost" {
		t.Fatalf("unexpected batch: %+v", batch)
	}
	id := batch.Created[0].ID

	w = env.do(http.MethodPost, "/api/admin/quests", quest.CreateInput{Name: "Everyone", Players: []string{"all"}}, cookies)
	if w.Code != http.StatusBadRequest {
		t.Errorf("all players: expected 400, got %d", w.Code)
	}

	w = env.game(http.MethodPost, "/api/game/quests/"+id+"/done", "u1", ReportDoneRequest{Justification: "photo at the door"})
	if w.Code != http.StatusOK {
		t.Fatalf("report done: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(http.MethodPost, "/api/admin/quests/"+id+"/approve", nil, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("approve: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	res := decode[quest.ApproveResult](t, w)
	if res.Quest.Status != questboard.QuestCompleted {
		t.Errorf("status = %s, want completed", res.Quest.Status)
	}
	if res.Player.Level != 2 || res.Player.Experience != 50 || res.Player.Points != 10 {
		t.Errorf("unexpected player after approve: %+v", res.Player)
	}

	if w := env.do(http.MethodPost, "/api/admin/quests/"+id+"/approve", nil, cookies); w.Code != http.StatusConflict {
		t.Errorf("re-approve: expected 409, got %d", w.Code)
	}
	if w := env.game(http.MethodPost, "/api/game/quests/"+id+"/done", "u1", nil); w.Code != http.StatusConflict {
		t.Errorf("done after completion: expected 409, got %d", w.Code)
	}

	w = env.do(http.MethodGet, "/api/admin/quests", nil, cookies)
	if list := decode[[]quest.View](t, w); len(list) != 0 {
		t.Errorf("completed quest still listed: %+v", list)
	}
}

func TestQuestEditDuplicateDelete(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login()

	w := env.do(http.MethodPost, "/api/admin/quests", quest.CreateInput{Name: "Map", Players: []string{"beto@example.com"}}, cookies)
	id := decode[quest.BatchResult](t, w).Created[0].ID

	desc := "Find the old map"
	w = env.do(http.MethodPatch, "/api/admin/quests/"+id, quest.UpdateInput{Description: &desc}, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(http.MethodPost, "/api/admin/quests/"+id+"/duplicate", nil, cookies)
	if w.Code != http.StatusCreated {
		t.Fatalf("duplicate: expected 201, got %d", w.Code)
	}
	dup := decode[questboard.Quest](t, w)
	if dup.Name != "Map (Copy)" || dup.Description != desc || dup.ID == id {
		t.Errorf("unexpected duplicate: %+v", dup)
	}

	if w := env.do(http.MethodDelete, "/api/admin/quests/"+id, nil, cookies); w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}
	if w := env.do(http.MethodDelete, "/api/admin/quests/"+id, nil, cookies); w.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", w.Code)
	}
	if w := env.do(http.MethodPost, "/api/admin/quests/missing/approve", nil, cookies); w.Code != http.StatusNotFound {
		t.Errorf("approve missing: expected 404, got %d", w.Code)
	}
}

func TestSendFeedbackIdempotent(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login()

	send := func() feedback.SendResult {
		req := newRequest(t, http.MethodPost, "/api/admin/feedback", feedback.SendRequest{
			PlayerIDs: []string{"u2"},
			Type:      questboard.FeedbackPositive,
			Title:     "Great work",
			Message:   "Nice teamwork today",
			XPDelta:   5,
		})
		req.Header.Set("Idempotency-Key", "batch-1")
		for _, c := range cookies {
			req.AddCookie(c)
		}
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("send: expected 200, got %d: %s", w.Code, w.Body.String())
		}
		return decode[feedback.SendResult](t, w)
	}

	first := send()
	second := send()
	if first.Sent != 1 || second.Sent != 1 || first.Feedback[0].ID != second.Feedback[0].ID {
		t.Fatalf("unexpected results: %+v / %+v", first, second)
	}

	w := env.do(http.MethodGet, "/api/admin/players/u2", nil, cookies)
	if p := decode[questboard.Player](t, w); p.Experience != 155 {
		t.Errorf("experience = %d, want 155", p.Experience)
	}

	fid := first.Feedback[0].ID
	w = env.do(http.MethodPost, "/api/admin/feedback/"+fid+"/apply-xp", nil, cookies)
	if got := decode[ApplyXPResponse](t, w); got.Applied {
		t.Error("XP applied twice")
	}

	w = env.do(http.MethodGet, "/api/admin/feedback", nil, cookies)
	if list := decode[[]questboard.Feedback](t, w); len(list) != 1 {
		t.Errorf("history has %d records, want 1", len(list))
	}

	bad := feedback.SendRequest{PlayerIDs: []string{"u1"}, Type: "great", Title: "x", Message: "y"}
	if w := env.do(http.MethodPost, "/api/admin/feedback", bad, cookies); w.Code != http.StatusBadRequest {
		t.Errorf("bad type: expected 400, got %d", w.Code)
	}

	if w := env.do(http.MethodDelete, "/api/admin/feedback/"+fid, nil, cookies); w.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", w.Code)
	}
	if w := env.do(http.MethodDelete, "/api/admin/feedback/"+fid, nil, cookies); w.Code != http.StatusNotFound {
		t.Errorf("second delete: expected 404, got %d", w.Code)
	}
}

func TestDayGrades(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login()

	for _, g := range []int{3, 5} {
		w := env.do(http.MethodPut, "/api/admin/daygrades/u1", DayGradeRequest{Date: "2026-07-01", Grade: g}, cookies)
		if w.Code != http.StatusOK {
			t.Fatalf("save: expected 200, got %d: %s", w.Code, w.Body.String())
		}
	}
	if w := env.do(http.MethodPut, "/api/admin/daygrades/u2", DayGradeRequest{Date: "2026-07-01", Grade: 6}, cookies); w.Code != http.StatusBadRequest {
		t.Errorf("grade 6: expected 400, got %d", w.Code)
	}
	if w := env.do(http.MethodPut, "/api/admin/daygrades/ghost", DayGradeRequest{Date: "2026-07-01", Grade: 2}, cookies); w.Code != http.StatusNotFound {
		t.Errorf("unknown player: expected 404, got %d", w.Code)
	}

	w := env.do(http.MethodGet, "/api/admin/daygrades?date=2026-07-01", nil, cookies)
	got := decode[DayGradesResponse](t, w)
	if len(got.Grades) != 1 || got.Grades[0].Grade != 5 || got.Grades[0].GradedBy == "" {
		t.Errorf("unexpected grades: %+v", got)
	}

	w = env.do(http.MethodPost, "/api/admin/daygrades/reset", ResetRequest{Date: "2026-07-01"}, cookies)
	if res := decode[ResetResponse](t, w); res.Removed != 1 {
		t.Errorf("removed = %d, want 1", res.Removed)
	}
	if w := env.do(http.MethodGet, "/api/admin/daygrades?date=July", nil, cookies); w.Code != http.StatusBadRequest {
		t.Errorf("bad date: expected 400, got %d", w.Code)
	}
}

func TestMissionsAndMessages(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.login()

	w := env.game(http.MethodPost, "/api/game/missions", "u1", map[string]string{"description": "Cleaned the plaza"})
	if w.Code != http.StatusCreated {
		t.Fatalf("submit: expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do(http.MethodGet, "/api/admin/missions", nil, cookies)
	missions := decode[MissionsResponse](t, w)
	if len(missions.Players) != 1 || missions.Players[0].Submissions[0].MissionName != questboard.DefaultMissionName {
		t.Errorf("unexpected missions: %+v", missions)
	}

	w = env.game(http.MethodPost, "/api/game/messages", "u2", MessageRequest{Subject: "Bug", Body: "The map does not load"})
	if w.Code != http.StatusCreated {
		t.Fatalf("message: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	msg := decode[questboard.Message](t, w)

	w = env.do(http.MethodGet, "/api/admin/messages", nil, cookies)
	if list := decode[[]questboard.Message](t, w); len(list) != 1 || list[0].PlayerName != "Beto" {
		t.Errorf("unexpected inbox: %+v", list)
	}
	if w := env.do(http.MethodPost, "/api/admin/messages/"+msg.ID+"/read", nil, cookies); w.Code != http.StatusOK {
		t.Errorf("read: expected 200, got %d", w.Code)
	}
	if w := env.do(http.MethodDelete, "/api/admin/messages/"+msg.ID, nil, cookies); w.Code != http.StatusOK {
		t.Errorf("delete: expected 200, got %d", w.Code)
	}
	if w := env.do(http.MethodPost, "/api/admin/messages/"+msg.ID+"/read", nil, cookies); w.Code != http.StatusNotFound {
		t.Errorf("read deleted: expected 404, got %d", w.Code)
	}
}

func TestAdminRoutesRequireSession(t *testing.T) {
	env := newTestEnv(t)

	paths := []struct{ method, path string }{
		{http.MethodGet, "/api/admin/players"},
		{http.MethodPost, "/api/admin/quests"},
		{http.MethodPost, "/api/admin/feedback"},
		{http.MethodGet, "/api/admin/daygrades"},
		{http.MethodGet, "/api/admin/messages"},
	}
	for _, p := range paths {
		if w := env.do(p.method, p.path, nil, nil); w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", p.method, p.path, w.Code)
		}
	}
}
