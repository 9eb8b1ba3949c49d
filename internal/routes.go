package internal

import (
	"net/http"
	"sitestatus/internal/controllers"
	"sitestatus/internal/providers"
)

func InitRoutes(statusController *controllers.StatusController, phaseController *controllers.PhaseController, connectionController *controllers.ConnectionController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/status/open", http.HandlerFunc(statusController.GetOpenStatus))
	routers.Post("/status/{site}", http.HandlerFunc(statusController.PostStatus))
	routers.Delete("/status/{site}", http.HandlerFunc(statusController.ClearSite))
	routers.Get("/status/{site}/complete", http.HandlerFunc(statusController.GetCompleteStatus))
	routers.Get("/status/{site}/{status_type}", http.HandlerFunc(statusController.GetStatus))

	routers.Post("/phase_status", http.HandlerFunc(phaseController.PostPhase))
	routers.Get("/phase_status/{site}", http.HandlerFunc(phaseController.GetPhase))

	routers.Get("/ws", http.HandlerFunc(connectionController.Connect))
	return routers
}
