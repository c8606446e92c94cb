package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
)

// FaceBox is a detected face rectangle in pixels
type FaceBox struct {
	Left   int `json:"left" example:"112"`
	Top    int `json:"top" example:"80"`
	Right  int `json:"right" example:"298"`
	Bottom int `json:"bottom" example:"266"`
}

// Point is a single landmark
type Point struct {
	X int `json:"x" example:"140"`
	Y int `json:"y" example:"171"`
}

// FaceLandmarksData pairs a face with its 68 landmarks
type FaceLandmarksData struct {
	Face      FaceBox `json:"face"`
	Landmarks []Point `json:"landmarks"`
}

// ProcessImageResponse is returned when landmarks were found
type ProcessImageResponse struct {
	Image     string              `json:"image" example:"/9j/4AAQSkZJRgABAQAAAQABAAD..."`
	Landmarks []FaceLandmarksData `json:"landmarks"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error" example:"No faces detected in the image"`
}

type HealthResponse struct {
	Status string `json:"status" example:"healthy"`
}

// ModelStatus mirrors the provisioner snapshot
type ModelStatus struct {
	State    string `json:"state" example:"ready"`
	Reason   string `json:"reason,omitempty" example:""`
	Path     string `json:"path" example:"shape_predictor_68_face_landmarks.dat"`
	LoadedAt string `json:"loaded_at,omitempty" example:"2024-01-01T00:00:00Z"`
}

type ReadyResponse struct {
	Status string      `json:"status" example:"ready"`
	Model  ModelStatus `json:"model"`
}

// NewSwagger builds the OpenAPI document served under /swagger.
func NewSwagger(host string) *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Facemark API",
		Version:     "v1.0.0",
		Description: "Detects faces in an uploaded image and returns the 68 facial landmarks per face together with an annotated copy of the image",
		Host:        host,
		Path:        "/",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /process-image - Detect landmarks
		endpoint.New(
			endpoint.POST,
			"/process-image",
			endpoint.WithTags("Landmarks"),
			endpoint.WithSummary("Detect facial landmarks"),
			endpoint.WithDescription("Accepts an image in the multipart field \"file\". Returns the image as base64 JPEG with every landmark drawn on it, and the landmark coordinates per face."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ProcessImageResponse{}, "200", "Landmarks detected"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Error: "File must be an image"}, "400", "Bad Request"),
				response.New(ErrorResponse{Error: "Image exceeds the maximum upload size"}, "413", "Payload Too Large"),
				response.New(ErrorResponse{Error: "Too many requests, please try again later"}, "429", "Too Many Requests"),
				response.New(ErrorResponse{Error: "Error processing image"}, "500", "Internal Server Error"),
				response.New(ErrorResponse{Error: "Facial landmark predictor is not initialized yet. Please try again in a moment."}, "503", "Service Unavailable"),
			}),
		),

		// GET /health - Liveness
		endpoint.New(
			endpoint.GET,
			"/health",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Liveness probe"),
			endpoint.WithDescription("Always healthy while the process is serving, even before the model is loaded"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(HealthResponse{}, "200", "Service is running"),
			}),
		),

		// GET /ready - Readiness
		endpoint.New(
			endpoint.GET,
			"/ready",
			endpoint.WithTags("Health"),
			endpoint.WithSummary("Readiness probe"),
			endpoint.WithDescription("Ready once the landmark model has been provisioned and loaded"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ReadyResponse{}, "200", "Model loaded"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ReadyResponse{Status: "not_ready", Model: ModelStatus{State: "loading"}}, "503", "Model not loaded"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
