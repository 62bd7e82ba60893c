package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/questboard/internal/feedback"
	"github.com/playperu/questboard/internal/leaderboard"
	"github.com/playperu/questboard/internal/mission"
	"github.com/playperu/questboard/internal/player"
	"github.com/playperu/questboard/internal/quest"
	"github.com/playperu/questboard/internal/questboard"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse acknowledges a command that returns no document.
type StatusResponse struct {
	Status string `json:"status"`
}

// HealthResponse maps each dependency to its status.
type HealthResponse map[string]StatusResponse

// Request shapes that carry path and query parameters for the document.
type (
	idPath       struct{ ID string `path:"id"` }
	playerIDPath struct{ PlayerID string `path:"playerID"` }
	dateQuery    struct{ Date string `query:"date" pattern:"^\\d{4}-\\d{2}-\\d{2}$"` }
	limitQuery   struct{ Limit int `query:"limit" minimum:"1" maximum:"100"` }

	playerPatch struct {
		idPath
		player.UpdateInput
	}
	questPatch struct {
		idPath
		quest.UpdateInput
	}
	reportDone struct {
		idPath
		ReportDoneRequest
	}
	gradePut struct {
		playerIDPath
		DayGradeRequest
	}
	gradeDelete struct {
		playerIDPath
		dateQuery
	}
)

type resp struct {
	body   any
	status int
}

type operation struct {
	method, path     string
	summary, details string
	req              any
	resps            []resp
}

const (
	adminAuth = " Requires admin_session cookie."
	gameAuth  = " Requires a player token as Bearer header or token query parameter."
)

func ok(body any) resp { return resp{body, http.StatusOK} }
func created(body any) resp { return resp{body, http.StatusCreated} }
func fail(status int) resp { return resp{ErrorResponse{}, status} }
func unauthorized() resp { return fail(http.StatusUnauthorized) }
func notFound() resp { return fail(http.StatusNotFound) }
func badRequest() resp { return fail(http.StatusBadRequest) }
func conflict() resp { return fail(http.StatusConflict) }
func unavailable() resp { return fail(http.StatusServiceUnavailable) }
func forbidden() resp { return fail(http.StatusForbidden) }
func unprocessable() resp { return fail(http.StatusUnprocessableEntity) }
func statusOK() resp { return ok(StatusResponse{}) }

func operations() []operation {
	return []operation{
		{http.MethodGet, "/healthz", "Health check", "Returns the health status of backend dependencies.", nil,
			[]resp{ok(HealthResponse{}), {HealthResponse{}, http.StatusServiceUnavailable}}},

		{http.MethodPost, "/api/admin/login", "Admin login", "Authenticate with email and password. Sets admin_session cookie.", AdminLoginRequest{},
			[]resp{ok(AdminMeResponse{}), unauthorized(), badRequest()}},
		{http.MethodPost, "/api/admin/logout", "Admin logout", "Clears admin session and cookie.", nil,
			[]resp{statusOK()}},
		{http.MethodGet, "/api/admin/me", "Current admin", "Returns the currently authenticated admin." + adminAuth, nil,
			[]resp{ok(AdminMeResponse{}), unauthorized()}},

		{http.MethodGet, "/api/admin/players", "List players", "Returns all players sorted by name." + adminAuth, nil,
			[]resp{ok([]questboard.Player{}), unauthorized()}},
		{http.MethodPost, "/api/admin/players", "Create player", "Creates a player. Level and experience are normalised." + adminAuth, player.CreateInput{},
			[]resp{created(questboard.Player{}), badRequest(), unauthorized()}},
		{http.MethodGet, "/api/admin/players/{id}", "Get player", "Returns one player." + adminAuth, idPath{},
			[]resp{ok(questboard.Player{}), notFound(), unauthorized()}},
		{http.MethodPatch, "/api/admin/players/{id}", "Update player", "Updates the given fields of a player." + adminAuth, playerPatch{},
			[]resp{ok(questboard.Player{}), badRequest(), notFound(), unauthorized()}},
		{http.MethodDelete, "/api/admin/players/{id}", "Delete player", "Deletes a player." + adminAuth, idPath{},
			[]resp{statusOK(), notFound(), unauthorized()}},
		{http.MethodPost, "/api/admin/players/{id}/token", "Issue player token", "Mints a game-client token for the player." + adminAuth, idPath{},
			[]resp{ok(PlayerTokenResponse{}), notFound(), unauthorized()}},
		{http.MethodGet, "/api/admin/leaderboard", "Leaderboard", "Top players by level, then experience. Optional limit query parameter (default 5)." + adminAuth, limitQuery{},
			[]resp{ok([]leaderboard.Entry{}), badRequest(), unauthorized()}},

		{http.MethodGet, "/api/admin/quests", "List active quests", "Returns quests that are not completed, newest first." + adminAuth, nil,
			[]resp{ok([]quest.View{}), unauthorized()}},
		{http.MethodPost, "/api/admin/quests", "Create quests", "Creates one quest per selected player. Per-player failures are listed in the response." + adminAuth, quest.CreateInput{},
			[]resp{created(quest.BatchResult{}), badRequest(), unauthorized()}},
		{http.MethodGet, "/api/admin/quests/{id}", "Get quest", "Returns one quest." + adminAuth, idPath{},
			[]resp{ok(questboard.Quest{}), notFound(), unauthorized()}},
		{http.MethodPatch, "/api/admin/quests/{id}", "Update quest", "Edits a quest that is not completed." + adminAuth, questPatch{},
			[]resp{ok(questboard.Quest{}), badRequest(), notFound(), conflict(), unauthorized()}},
		{http.MethodDelete, "/api/admin/quests/{id}", "Delete quest", "Deletes a quest." + adminAuth, idPath{},
			[]resp{statusOK(), notFound(), unauthorized()}},
		{http.MethodPost, "/api/admin/quests/{id}/approve", "Approve quest", "Completes a quest and grants its reward exactly once." + adminAuth, idPath{},
			[]resp{ok(quest.ApproveResult{}), badRequest(), notFound(), conflict(), unprocessable(), unauthorized()}},
		{http.MethodPost, "/api/admin/quests/{id}/duplicate", "Duplicate quest", "Copies a quest as a new active quest ending in 24 hours." + adminAuth, idPath{},
			[]resp{created(questboard.Quest{}), notFound(), unauthorized()}},

		{http.MethodGet, "/api/admin/feedback", "Feedback history", "Returns all feedback sent, newest first." + adminAuth, nil,
			[]resp{ok([]questboard.Feedback{}), unauthorized()}},
		{http.MethodPost, "/api/admin/feedback", "Send feedback", "Sends feedback to each selected player and applies its XP once. Repeat the Idempotency-Key header on retries." + adminAuth, feedback.SendRequest{},
			[]resp{ok(feedback.SendResult{}), badRequest(), unauthorized()}},
		{http.MethodDelete, "/api/admin/feedback/{id}", "Delete feedback", "Deletes both copies of a feedback record." + adminAuth, idPath{},
			[]resp{statusOK(), notFound(), unauthorized()}},
		{http.MethodPost, "/api/admin/feedback/{id}/apply-xp", "Apply feedback XP", "Applies the XP of a feedback record if it has not been applied yet." + adminAuth, idPath{},
			[]resp{ok(ApplyXPResponse{}), notFound(), unauthorized()}},

		{http.MethodGet, "/api/admin/daygrades", "List day grades", "Returns the grades of a day (date query parameter, default today)." + adminAuth, dateQuery{},
			[]resp{ok(DayGradesResponse{}), badRequest(), unauthorized()}},
		{http.MethodPut, "/api/admin/daygrades/{playerID}", "Save day grade", "Saves a 1-5 grade for the player, replacing any earlier grade that day." + adminAuth, gradePut{},
			[]resp{ok(questboard.DayGrade{}), badRequest(), notFound(), unauthorized()}},
		{http.MethodDelete, "/api/admin/daygrades/{playerID}", "Clear day grade", "Removes the player's grade for a day." + adminAuth, gradeDelete{},
			[]resp{statusOK(), badRequest(), unauthorized()}},
		{http.MethodPost, "/api/admin/daygrades/reset", "Reset day grades", "Removes every grade of a day." + adminAuth, ResetRequest{},
			[]resp{ok(ResetResponse{}), badRequest(), unauthorized()}},

		{http.MethodGet, "/api/admin/missions", "List mission submissions", "Returns each player's submissions for a day (date query parameter, default today)." + adminAuth, dateQuery{},
			[]resp{ok(MissionsResponse{}), badRequest(), unauthorized()}},

		{http.MethodGet, "/api/admin/messages", "List messages", "Returns messages sent by players, newest first." + adminAuth, nil,
			[]resp{ok([]questboard.Message{}), unauthorized()}},
		{http.MethodPost, "/api/admin/messages/{id}/read", "Mark message read", "Marks a message read." + adminAuth, idPath{},
			[]resp{statusOK(), notFound(), unauthorized()}},
		{http.MethodDelete, "/api/admin/messages/{id}", "Delete message", "Deletes a message." + adminAuth, idPath{},
			[]resp{statusOK(), notFound(), unauthorized()}},

		{http.MethodGet, "/api/game/me", "Current player", "Returns the authenticated player." + gameAuth, nil,
			[]resp{ok(questboard.Player{}), unauthorized(), unavailable()}},
		{http.MethodPost, "/api/game/session", "Start session", "Records a login and returns the player." + gameAuth, nil,
			[]resp{ok(questboard.Player{}), unauthorized(), unavailable()}},
		{http.MethodGet, "/api/game/quests", "My quests", "Returns the player's quests that are not completed." + gameAuth, nil,
			[]resp{ok([]quest.View{}), unauthorized(), unavailable()}},
		{http.MethodPost, "/api/game/quests/{id}/done", "Report quest done", "Marks the quest done with an optional justification. Repeating it is harmless." + gameAuth, reportDone{},
			[]resp{ok(questboard.Quest{}), notFound(), conflict(), forbidden(), unauthorized(), unavailable()}},
		{http.MethodPost, "/api/game/missions", "Submit mission", "Appends a mission submission for today." + gameAuth, mission.SubmissionInput{},
			[]resp{created(questboard.Submission{}), badRequest(), unauthorized(), unavailable()}},
		{http.MethodGet, "/api/game/feedback", "My feedback", "Returns feedback received, newest first." + gameAuth, nil,
			[]resp{ok([]questboard.Feedback{}), unauthorized(), unavailable()}},
		{http.MethodPost, "/api/game/feedback", "Game feedback", "Records feedback raised by the game for the player. Never carries XP." + gameAuth, feedback.GameFeedback{},
			[]resp{created(questboard.Feedback{}), badRequest(), unauthorized(), unavailable()}},
		{http.MethodPost, "/api/game/feedback/{id}/read", "Mark feedback read", "Marks the player's feedback read." + gameAuth, idPath{},
			[]resp{ok(questboard.Feedback{}), notFound(), forbidden(), unauthorized(), unavailable()}},
		{http.MethodGet, "/api/game/messages", "My messages", "Returns messages the player sent." + gameAuth, nil,
			[]resp{ok([]questboard.Message{}), unauthorized(), unavailable()}},
		{http.MethodPost, "/api/game/messages", "Message admins", "Sends a message to the admin inbox." + gameAuth, MessageRequest{},
			[]resp{created(questboard.Message{}), badRequest(), unauthorized(), unavailable()}},
	}
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Questboard API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Admin and game-client API for quests, feedback and player progression.")

	for _, op := range operations() {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		oc.SetDescription(op.details)
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		for _, rs := range op.resps {
			oc.AddRespStructure(rs.body, openapi.WithHTTPStatus(rs.status))
		}
		_ = r.AddOperation(oc)
	}

	// Event streams.
	for _, st := range []struct{ path, summary, desc string }{
		{"/api/admin/events", "Admin event stream", "Server-Sent Events stream of every player's updates." + adminAuth},
		{"/api/game/events", "SSE event stream", "Server-Sent Events stream of the player's updates." + gameAuth},
	} {
		oc, _ := r.NewOperationContext(http.MethodGet, st.path)
		oc.SetSummary(st.summary)
		oc.SetDescription(st.desc)
		oc.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
			openapi.WithContentType("text/event-stream"))
		_ = r.AddOperation(oc)
	}

	// GET /api/game/ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/api/game/ws")
	getWS.SetSummary("WebSocket event push")
	getWS.SetDescription("Upgrades to a WebSocket connection that pushes the player's updates." + gameAuth)
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
