package compliance

import (
	"time"

	"gorm.io/datatypes"
)

// Status classifies the outcome of processing one detected person.
type Status string

const (
	StatusIDVerified             Status = "id_verified"
	StatusRecognizedViolation    Status = "recognized_violation"
	StatusUnrecognizedFace       Status = "unrecognized_face"
	StatusNoFaceFound            Status = "no_face_found"
	StatusRecognitionUnavailable Status = "recognition_unavailable"
	StatusDetectionError         Status = "detection_error"
)

// Box is a detection rectangle in pixel coordinates, x1<x2 and y1<y2.
type Box struct {
	X1         int     `json:"x1"`
	Y1         int     `json:"y1"`
	X2         int     `json:"x2"`
	Y2         int     `json:"y2"`
	Confidence float64 `json:"confidence"`
}

func (b Box) Width() int  { return b.X2 - b.X1 }
func (b Box) Height() int { return b.Y2 - b.Y1 }
func (b Box) Area() int   { return b.Width() * b.Height() }

// Center returns the midpoint of the box.
func (b Box) Center() Point {
	return Point{X: float64(b.X1+b.X2) / 2, Y: float64(b.Y1+b.Y2) / 2}
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Face is one detected face inside a person region, with its embedding.
type Face struct {
	Box       Box       `json:"bbox"`
	Embedding []float64 `json:"embedding"`
}

// Verdict is the per-person compliance outcome for one frame.
type Verdict struct {
	Status      Status  `json:"status"`
	IdentityID  string  `json:"identity_id,omitempty"`
	DisplayName string  `json:"name,omitempty"`
	Similarity  float64 `json:"similarity"`
	FaceFound   bool    `json:"face_found"`
	FineApplied bool    `json:"fine_applied"`
	Box         Box     `json:"bbox"`
	Error       string  `json:"error,omitempty"`
}

// Identity is one known person tracked by the ledger.
type Identity struct {
	IdentityID         string         `json:"identity_id"`
	DisplayName        string         `json:"name"`
	OutstandingBalance float64        `json:"outstanding_balance"`
	Email              string         `json:"email,omitempty"`
	Metadata           datatypes.JSON `json:"metadata,omitempty"`
}

// FineEvent is one immutable audit record of an applied fine.
type FineEvent struct {
	IdentityID    string    `json:"identity_id"`
	DisplayName   string    `json:"name"`
	Timestamp     time.Time `json:"timestamp"`
	EvidenceImage string    `json:"evidence_image"`
}

// Notification is the payload handed to the notification sink after a fine.
type Notification struct {
	Address     string
	DisplayName string
	FineAmount  float64
	NewBalance  float64
}
