package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, d Deps) {
	ranking := d.Ranking
	if ranking == nil {
		ranking = storeRanking{players: d.Players}
	}

	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Questboard API", "/openapi.json", "/docs"))

	// Admin auth.
	r.Post("/api/admin/login", handleAdminLogin(logger, d.Admins))
	r.Post("/api/admin/logout", handleAdminLogout(logger, d.Admins))

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(adminAuthMiddleware(logger, d.Admins))
		r.Get("/me", handleAdminMe())

		r.Get("/players", handleAdminListPlayers(logger, d.Players))
		r.Post("/players", handleAdminCreatePlayer(logger, d.Players))
		r.Get("/players/{id}", handleAdminGetPlayer(logger, d.Players))
		r.Patch("/players/{id}", handleAdminUpdatePlayer(logger, d.Players))
		r.Delete("/players/{id}", handleAdminDeletePlayer(logger, d.Players))
		r.Post("/players/{id}/token", handleAdminIssuePlayerToken(logger, d.Players, d.Tokens))
		r.Get("/leaderboard", handleAdminLeaderboard(logger, ranking))

		r.Get("/quests", handleAdminListQuests(logger, d.Quests))
		r.Post("/quests", handleAdminCreateQuests(logger, d.Quests))
		r.Get("/quests/{id}", handleAdminGetQuest(logger, d.Quests))
		r.Patch("/quests/{id}", handleAdminUpdateQuest(logger, d.Quests))
		r.Delete("/quests/{id}", handleAdminDeleteQuest(logger, d.Quests))
		r.Post("/quests/{id}/approve", handleAdminApproveQuest(logger, d.Quests))
		r.Post("/quests/{id}/duplicate", handleAdminDuplicateQuest(logger, d.Quests))

		r.Get("/feedback", handleAdminListFeedback(logger, d.Feedback))
		r.Post("/feedback", handleAdminSendFeedback(logger, d.Feedback))
		r.Delete("/feedback/{id}", handleAdminDeleteFeedback(logger, d.Feedback))
		r.Post("/feedback/{id}/apply-xp", handleAdminApplyFeedbackXP(logger, d.Feedback))

		r.Get("/daygrades", handleAdminListDayGrades(logger, d.DayGrades))
		r.Post("/daygrades/reset", handleAdminResetDayGrades(logger, d.DayGrades))
		r.Put("/daygrades/{playerID}", handleAdminSaveDayGrade(logger, d.DayGrades))
		r.Delete("/daygrades/{playerID}", handleAdminClearDayGrade(logger, d.DayGrades))

		r.Get("/missions", handleAdminListMissions(logger, d.Missions, d.DayGrades))

		r.Get("/events", handleEvents(d.Broker, adminFeed))

		r.Get("/messages", handleAdminListMessages(logger, d.Inbox))
		r.Post("/messages/{id}/read", handleAdminReadMessage(logger, d.Inbox))
		r.Delete("/messages/{id}", handleAdminDeleteMessage(logger, d.Inbox))
	})

	// Game client API, bearer token or ?token=.
	r.Route("/api/game", func(r chi.Router) {
		r.Use(readyMiddleware(d.Ready))
		r.Use(playerAuthMiddleware(d.Tokens))

		r.Get("/me", handleGameMe(logger, d.Players))
		r.Post("/session", handleGameSession(logger, d.Players))
		r.Get("/quests", handleGameQuests(logger, d.Quests))
		r.Post("/quests/{id}/done", handleGameReportDone(logger, d.Quests))
		r.Post("/missions", handleGameAddMission(logger, d.Missions))
		r.Get("/feedback", handleGameFeedback(logger, d.Feedback))
		r.Post("/feedback", handleGameSendFeedback(logger, d.Feedback))
		r.Post("/feedback/{id}/read", handleGameReadFeedback(logger, d.Feedback))
		r.Get("/messages", handleGameMessages(logger, d.Inbox))
		r.Post("/messages", handleGameSendMessage(logger, d.Inbox))
		r.Get("/events", handleEvents(d.Broker, playerFrom))
		r.Get("/ws", handleWS(logger, d.Broker))
	})

	if d.ConsoleDir != "" {
		if info, err := os.Stat(d.ConsoleDir); err == nil && info.IsDir() {
			logger.Info("serving admin console", "dir", d.ConsoleDir)
			r.NotFound(handleConsole(d.ConsoleDir))
		}
	}
}
