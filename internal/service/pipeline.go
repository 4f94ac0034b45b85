package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"badge-compliance-service/internal/auditlog"
	"badge-compliance-service/internal/config"
	"badge-compliance-service/internal/domain/compliance"
	"badge-compliance-service/internal/imaging"
	"badge-compliance-service/internal/ledger"
	"badge-compliance-service/internal/notify"
	"badge-compliance-service/internal/vision"
)

var ErrMissingCollaborator = errors.New("core collaborator unavailable")

// Pipeline composes geometry fusion, identity matching, the fine ledger
// and the audit sink into the per-frame decision flow. The ledger is the
// only shared mutable state; everything else here is stateless per frame,
// so frames may be processed concurrently.
type Pipeline struct {
	personDetector vision.Detector
	cardDetector   vision.Detector
	embedder       vision.Embedder
	fineLedger     *ledger.Ledger
	audit          *auditlog.Sink
	notifier       notify.Notifier
	known          map[string][]float64
	cfg            *config.Config
	log            zerolog.Logger
}

func NewPipeline(
	personDetector vision.Detector,
	cardDetector vision.Detector,
	embedder vision.Embedder,
	fineLedger *ledger.Ledger,
	audit *auditlog.Sink,
	notifier notify.Notifier,
	known map[string][]float64,
	cfg *config.Config,
	log zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		personDetector: personDetector,
		cardDetector:   cardDetector,
		embedder:       embedder,
		fineLedger:     fineLedger,
		audit:          audit,
		notifier:       notifier,
		known:          known,
		cfg:            cfg,
		log:            log,
	}
}

// Ready reports whether the core collaborators are wired.
func (p *Pipeline) Ready() bool {
	return p.personDetector != nil && p.cardDetector != nil && p.embedder != nil
}

// RecognitionAvailable reports whether any known embeddings are loaded.
func (p *Pipeline) RecognitionAvailable() bool {
	return len(p.known) > 0
}

// ProcessFrame runs the full compliance decision for one frame and returns
// the annotated frame plus one verdict per detected person. A nil frame
// yields a placeholder error image and a single error verdict rather than
// an error; only a missing core collaborator fails the whole call.
func (p *Pipeline) ProcessFrame(ctx context.Context, frame image.Image) (image.Image, []compliance.Verdict, error) {
	if !p.Ready() {
		return nil, nil, ErrMissingCollaborator
	}

	if frame == nil {
		p.log.Error().Msg("received nil frame")
		placeholder := imaging.Placeholder(640, 480, "Input Error")
		return placeholder, []compliance.Verdict{{
			Status: compliance.StatusDetectionError,
			Error:  "input frame was nil",
		}}, nil
	}

	frameID := uuid.NewString()
	bounds := frame.Bounds()
	annotated := imaging.ToRGBA(frame)

	persons, err := p.personDetector.Detect(ctx, frame, p.cfg.Detector.PersonConfThreshold)
	if err != nil {
		p.log.Error().Err(err).Str("frame_id", frameID).Msg("person detection failed")
		imaging.DrawLabel(annotated, "Person Detection Error", 10, 30, imaging.ColorUnknownNoID)
		persons = nil
	}

	cards, err := p.cardDetector.Detect(ctx, frame, p.cfg.Detector.IDCardConfThreshold)
	if err != nil {
		p.log.Warn().Err(err).Str("frame_id", frameID).Msg("id card detection failed")
		cards = nil
	}
	for _, card := range cards {
		imaging.DrawBox(annotated, card, imaging.ColorIDCard)
		imaging.DrawLabel(annotated, "ID", card.X1, card.Y1-2, imaging.ColorIDCard)
	}
	centers := vision.CardCenters(cards)

	verdicts := make([]compliance.Verdict, 0, len(persons))
	for _, person := range persons {
		box, ok := vision.ClampToFrame(person, bounds.Dx(), bounds.Dy())
		if !ok {
			continue
		}

		verdict := p.evaluatePerson(ctx, frame, box, centers)
		p.annotate(annotated, verdict)
		verdicts = append(verdicts, verdict)
	}

	p.log.Debug().
		Str("frame_id", frameID).
		Int("persons", len(verdicts)).
		Int("id_cards", len(cards)).
		Msg("frame processed")
	return annotated, verdicts, nil
}

// evaluatePerson walks one person box through the compliance state
// machine: badge check, face extraction, identity match, fine application.
func (p *Pipeline) evaluatePerson(ctx context.Context, frame image.Image, box compliance.Box, centers []compliance.Point) compliance.Verdict {
	verdict := compliance.Verdict{Box: box}

	if vision.HasBadge(box, centers) {
		verdict.Status = compliance.StatusIDVerified
		return verdict
	}

	if !p.RecognitionAvailable() {
		verdict.Status = compliance.StatusRecognitionUnavailable
		return verdict
	}

	region := imaging.Crop(frame, box)
	faces, err := p.embedder.ExtractFaces(ctx, region)
	if err != nil {
		p.log.Error().Err(err).Msg("face extraction failed for person region")
		verdict.Status = compliance.StatusDetectionError
		verdict.Error = err.Error()
		return verdict
	}
	if len(faces) == 0 {
		verdict.Status = compliance.StatusNoFaceFound
		return verdict
	}

	face := vision.LargestFace(faces)
	verdict.FaceFound = true

	bestID, similarity := vision.Match(face.Embedding, p.known)
	verdict.Similarity = similarity

	if bestID == "" || similarity < p.cfg.Recognition.SimilarityThreshold {
		verdict.Status = compliance.StatusUnrecognizedFace
		return verdict
	}

	name, ok := p.fineLedger.DisplayName(bestID)
	if !ok {
		name = "Unknown"
	}
	verdict.Status = compliance.StatusRecognizedViolation
	verdict.IdentityID = bestID
	verdict.DisplayName = name

	applied, err := p.fineLedger.ApplyFine(ctx, bestID, name)
	if err != nil {
		p.log.Error().
			Err(err).
			Str("identity_id", bestID).
			Msg("fine application failed")
	}
	verdict.FineApplied = applied

	if applied {
		p.recordFine(bestID, name, region)
	}
	return verdict
}

// recordFine handles the best-effort side effects of a newly applied fine:
// evidence image, audit record, notification. Failures here are logged and
// never undo the fine.
func (p *Pipeline) recordFine(identityID, name string, region image.Image) {
	now := time.Now()

	evidenceRef, err := imaging.SaveEvidence(p.cfg.Audit.ImagesDir, identityID, now, region)
	if err != nil {
		p.log.Error().Err(err).Str("identity_id", identityID).Msg("failed to save evidence image")
		evidenceRef = "SAVE_FAILED"
	}

	p.audit.Record(compliance.FineEvent{
		IdentityID:    identityID,
		DisplayName:   name,
		Timestamp:     now,
		EvidenceImage: evidenceRef,
	})

	address, balance, ok := p.fineLedger.NotificationAddress(identityID)
	if !ok {
		p.log.Info().Str("identity_id", identityID).Msg("fine applied, no notification address on file")
		return
	}
	p.notifier.Notify(compliance.Notification{
		Address:     address,
		DisplayName: name,
		FineAmount:  p.fineLedger.FineAmount(),
		NewBalance:  balance,
	})
}

func (p *Pipeline) annotate(dst *image.RGBA, v compliance.Verdict) {
	var label string
	var col = imaging.ColorUnknownNoID

	switch v.Status {
	case compliance.StatusIDVerified:
		label = "ID Verified"
		col = imaging.ColorPersonWithID
	case compliance.StatusRecognizedViolation:
		label = fmt.Sprintf("Fine: %s (%.2f)", v.DisplayName, v.Similarity)
		col = imaging.ColorRecognizedNoID
	case compliance.StatusUnrecognizedFace:
		label = fmt.Sprintf("Unknown Face (%.2f)", v.Similarity)
	case compliance.StatusNoFaceFound:
		label = "Unknown (No Face)"
	case compliance.StatusRecognitionUnavailable:
		label = "Unknown (Rec N/A)"
	case compliance.StatusDetectionError:
		label = "Face Detection Error"
	}

	imaging.DrawBox(dst, v.Box, col)
	labelY := v.Box.Y1 - 7
	if v.Box.Y1 <= 20 {
		labelY = v.Box.Y2 + 15
	}
	imaging.DrawLabel(dst, label, v.Box.X1+2, labelY, col)
}
