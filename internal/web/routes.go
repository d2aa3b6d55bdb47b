package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/smartgallery/backend/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	photosHandler := handlers.NewPhotosHandler(s.svc)
	clustersHandler := handlers.NewClustersHandler(s.svc)
	searchHandler := handlers.NewSearchHandler(s.svc)
	categoriesHandler := handlers.NewCategoriesHandler(s.svc)
	statsHandler := handlers.NewStatsHandler(s.svc)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Photos
		r.Get("/photos", photosHandler.List)
		r.Post("/photos", photosHandler.Upload)
		r.Get("/photos/{id}", photosHandler.Get)
		r.Delete("/photos/{id}", photosHandler.Delete)
		r.Put("/photos/{id}/favorite", photosHandler.Favorite)
		r.Get("/photos/{id}/file", photosHandler.File)
		r.Get("/photos/{id}/thumbnail", photosHandler.Thumbnail)
		r.Get("/photos/{id}/similar", searchHandler.SimilarPhotos)

		// People (face clusters)
		r.Get("/clusters", clustersHandler.List)
		r.Post("/clusters/recluster", clustersHandler.Recluster)
		r.Get("/clusters/{id}", clustersHandler.Get)
		r.Patch("/clusters/{id}", clustersHandler.Rename)
		r.Post("/clusters/{id}/merge", clustersHandler.Merge)
		r.Get("/clusters/{id}/photos", clustersHandler.Photos)

		// Faces
		r.Get("/faces/{id}/similar", searchHandler.SimilarFaces)
		r.Post("/faces/{id}/split", clustersHandler.SplitFace)

		// Object categories
		r.Get("/categories", categoriesHandler.List)

		// Search
		r.Post("/search/text", searchHandler.Text)
		r.Post("/search/image", searchHandler.Image)
		r.Get("/search/object/{class}", searchHandler.ObjectClass)

		// Stats
		r.Get("/stats", statsHandler.Get)
	})
}
