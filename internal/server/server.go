// Package server exposes face registration and verification over HTTP for
// the attendance workflow.
package server

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	face "github.com/dimuls/face-verify"
	"github.com/dimuls/face-verify/internal/config"
	"github.com/dimuls/face-verify/internal/store"
)

// Faces is face registration and verification.
type Faces interface {
	Register(data []byte) (string, error)
	VerifyWithTolerance(data []byte, stored string, tolerance float64) (face.MatchResult, error)
	Tolerance() float64
}

// Encodings persists serialized encodings by employee ID.
type Encodings interface {
	Save(ctx context.Context, employeeID, encoding string) error
	Load(ctx context.Context, employeeID string) (store.Record, error)
	Delete(ctx context.Context, employeeID string) error
}

type Server struct {
	app       *fiber.App
	faces     Faces
	encodings Encodings
	log       *log.Logger
}

func New(cfg config.ServerConfig, faces Faces, encodings Encodings, logOutput io.Writer) *Server {
	s := &Server{
		faces:     faces,
		encodings: encodings,
		log:       log.New(logOutput, "", log.LstdFlags),
	}

	s.app = fiber.New(fiber.Config{
		BodyLimit:             cfg.BodyLimit,
		ReadTimeout:           cfg.ReadTimeout,
		WriteTimeout:          cfg.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{Output: logOutput}))

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now(),
		})
	})

	employees := s.app.Group("/employees/:id")
	employees.Put("/face", s.registerFace)
	employees.Get("/face", s.getFace)
	employees.Delete("/face", s.deleteFace)
	employees.Post("/face/verify", s.verifyFace)

	return s
}

// App returns underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	s.log.Printf("Server starting on %s", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type faceResponse struct {
	EmployeeID     string     `json:"employee_id"`
	FaceRegistered bool       `json:"face_registered"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty"`
}

type verifyResponse struct {
	EmployeeID string  `json:"employee_id"`
	Matched    bool    `json:"matched"`
	Confidence float64 `json:"confidence"`
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
	Tolerance  float64 `json:"tolerance"`
}

func (s *Server) registerFace(c *fiber.Ctx) error {
	employeeID := c.Params("id")

	data, err := readImage(c)
	if err != nil {
		return err
	}

	encoding, err := s.faces.Register(data)
	if err != nil {
		return s.faceError(err)
	}

	if err := s.encodings.Save(c.UserContext(), employeeID, encoding); err != nil {
		return err
	}

	s.log.Printf("face registered for employee %s", employeeID)

	return c.Status(fiber.StatusCreated).JSON(statusResponse{
		Success: true,
		Message: "Face image uploaded successfully",
	})
}

func (s *Server) getFace(c *fiber.Ctx) error {
	employeeID := c.Params("id")

	record, err := s.encodings.Load(c.UserContext(), employeeID)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(faceResponse{EmployeeID: employeeID})
	}
	if err != nil {
		return err
	}

	return c.JSON(faceResponse{
		EmployeeID:     employeeID,
		FaceRegistered: strings.TrimSpace(record.Encoding) != "",
		UpdatedAt:      &record.UpdatedAt,
	})
}

func (s *Server) deleteFace(c *fiber.Ctx) error {
	if err := s.encodings.Delete(c.UserContext(), c.Params("id")); err != nil {
		return s.faceError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) verifyFace(c *fiber.Ctx) error {
	employeeID := c.Params("id")

	tolerance := s.faces.Tolerance()
	if v := c.FormValue("tolerance", c.Query("tolerance")); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 || t > 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Tolerance should be a number within 0..1")
		}
		tolerance = t
	}

	record, err := s.encodings.Load(c.UserContext(), employeeID)
	if err != nil {
		return s.faceError(err)
	}

	data, err := readImage(c)
	if err != nil {
		return err
	}

	result, err := s.faces.VerifyWithTolerance(data, record.Encoding, tolerance)
	if err != nil {
		return s.faceError(err)
	}

	s.log.Printf("face verification for employee %s: matched %t, confidence %.1f%%",
		employeeID, result.Matched, result.Confidence)

	return c.JSON(verifyResponse{
		EmployeeID: employeeID,
		Matched:    result.Matched,
		Confidence: displayConfidence(result.Confidence),
		Distance:   result.Distance,
		Similarity: result.Similarity,
		Tolerance:  tolerance,
	})
}

// displayConfidence clamps confidence to a percentage.
func displayConfidence(c float64) float64 {
	return math.Max(0, math.Min(100, c))
}

// readImage takes image from multipart face_image field or raw request body.
func readImage(c *fiber.Ctx) ([]byte, error) {
	if fh, err := c.FormFile("face_image"); err == nil {
		f, err := fh.Open()
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Failed to read face image: "+err.Error())
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Failed to read face image: "+err.Error())
		}
		if len(data) > 0 {
			return data, nil
		}
	}

	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) && len(c.Body()) > 0 {
		return append([]byte(nil), c.Body()...), nil
	}

	return nil, fiber.NewError(fiber.StatusBadRequest, "No image provided")
}

func (s *Server) faceError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound,
			"Face not registered for this employee. Please upload your face image first.")
	case errors.Is(err, face.ErrCorruptEncoding), errors.Is(err, face.ErrEncodingShapeMismatch):
		return fiber.NewError(fiber.StatusConflict,
			"Stored face encoding is invalid. Please register your face again.")
	case errors.Is(err, face.ErrImageLoad):
		return fiber.NewError(fiber.StatusBadRequest, "Invalid image")
	case errors.Is(err, face.ErrNoFaceDetected):
		return fiber.NewError(fiber.StatusUnprocessableEntity,
			"No face detected in the image. Please upload a clear photo of your face.")
	}
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	} else {
		s.log.Printf("request %s %s failed: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(errorResponse{Error: message})
}
