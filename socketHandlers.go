package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"log/slog"
	"time"

	"smart-parking/parking"
	"smart-parking/utils"

	socketio "github.com/googollee/go-socket.io"
	"github.com/mdobak/go-xerrors"
)

// socketController mirrors the HTTP step flow over socket.io so the UI can
// follow the session in real time.
type socketController struct {
	sessions *sessionController
}

func newSocketController(sessions *sessionController) *socketController {
	return &socketController{sessions: sessions}
}

// imagePayload is the socket upload format: base64 image data plus an
// optional filename.
type imagePayload struct {
	Image    string `json:"image"`
	Filename string `json:"filename,omitempty"`
}

type socketIntensityPayload struct {
	PathID    int `json:"pathId"`
	Intensity int `json:"intensity"`
}

func (c *socketController) emitSession(socket socketio.Conn) {
	socket.Emit("session", c.sessions.Snapshot())
}

func decodeImagePayload(data string) ([]byte, string, error) {
	var payload imagePayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		return nil, "", err
	}
	image, err := base64.StdEncoding.DecodeString(payload.Image)
	if err != nil {
		return nil, "", err
	}
	filename := payload.Filename
	if filename == "" {
		filename = "upload.jpg"
	}
	return image, filename, nil
}

func (c *socketController) handleDetectSlots(socket socketio.Conn, data string) {
	logger := utils.GetLogger()
	ctx := context.Background()

	if data == "" {
		socket.Emit("allocationError", map[string]string{"message": "no image data received"})
		return
	}

	image, filename, err := decodeImagePayload(data)
	if err != nil {
		logger.ErrorContext(ctx, "failed to parse slot image payload", slog.Any("error", xerrors.New(err)))
		socket.Emit("allocationError", map[string]string{"message": "invalid image payload"})
		return
	}

	started := time.Now()
	slots, err := c.sessions.DetectSlots(ctx, image, filename)
	if err != nil {
		logger.ErrorContext(ctx, "slot detection failed", slog.Any("error", xerrors.New(err)))
		socket.Emit("allocationError", map[string]string{"message": "slot detection failed: " + err.Error()})
		return
	}

	logger.InfoContext(ctx, "slots detected",
		slog.String("socketID", socket.ID()),
		slog.Int("totalSlots", len(slots)),
		slog.Int("emptySlots", len(parking.EmptySlots(slots))),
		slog.Float64("latency_ms", time.Since(started).Seconds()*1000),
	)
	socket.Emit("slotsDetected", map[string]interface{}{
		"slots":      slots,
		"totalSlots": len(slots),
		"emptySlots": len(parking.EmptySlots(slots)),
	})
}

func (c *socketController) handleDetectVehicle(socket socketio.Conn, data string) {
	logger := utils.GetLogger()
	ctx := context.Background()

	image, filename, err := decodeImagePayload(data)
	if err != nil {
		logger.ErrorContext(ctx, "failed to parse vehicle image payload", slog.Any("error", xerrors.New(err)))
		socket.Emit("allocationError", map[string]string{"message": "invalid image payload"})
		return
	}

	vehicle, err := c.sessions.DetectVehicle(ctx, image, filename)
	if err != nil {
		logger.ErrorContext(ctx, "vehicle detection failed", slog.Any("error", xerrors.New(err)))
		socket.Emit("allocationError", map[string]string{"message": "vehicle detection failed: " + err.Error()})
		return
	}

	logger.InfoContext(ctx, "vehicle classified",
		slog.String("socketID", socket.ID()),
		slog.String("label", vehicle.Label),
		slog.String("category", string(vehicle.Category)),
		slog.Float64("confidence", vehicle.Confidence),
	)
	socket.Emit("vehicleClassified", vehicle)
}

func (c *socketController) handleAllocate(socket socketio.Conn) {
	logger := utils.GetLogger()
	ctx := context.Background()

	started := time.Now()
	state, err := c.sessions.Allocate(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "allocation failed", slog.Any("error", xerrors.New(err)))
		socket.Emit("allocationError", map[string]string{"message": err.Error()})
		return
	}

	logger.InfoContext(ctx, "allocation complete",
		slog.String("socketID", socket.ID()),
		slog.Int("slotNumber", state.Allocated.Number),
		slog.String("optimalPath", state.Optimal.Name),
		slog.Float64("optimalScore", *state.Optimal.Score),
		slog.Float64("latency_ms", time.Since(started).Seconds()*1000),
	)

	socket.Emit("allocation", map[string]interface{}{
		"allocatedSlot": state.Allocated,
		"paths":         state.Paths,
	})
	socket.Emit("optimalPath", state.Optimal)
}

func (c *socketController) handleOverrideIntensity(socket socketio.Conn, data string) {
	var payload socketIntensityPayload
	if err := json.Unmarshal([]byte(data), &payload); err != nil {
		socket.Emit("allocationError", map[string]string{"message": "invalid intensity payload"})
		return
	}

	state, err := c.sessions.OverrideIntensity(payload.PathID, payload.Intensity)
	if err != nil {
		socket.Emit("allocationError", map[string]string{"message": err.Error()})
		return
	}

	socket.Emit("optimalPath", state.Optimal)
}

func (c *socketController) handleReset(socket socketio.Conn) {
	state := c.sessions.Reset()
	log.Printf("Session %s reset via socket %s\n", state.ID, socket.ID())
	socket.Emit("sessionReset", state)
}
