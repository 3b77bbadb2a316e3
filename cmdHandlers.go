package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"io"
	"log"
	"log/slog"
	"math/rand"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"smart-parking/chat"
	"smart-parking/db"
	"smart-parking/events"
	"smart-parking/models"
	"smart-parking/parking"
	"smart-parking/records"
	"smart-parking/utils"
	"smart-parking/vision"

	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/mdobak/go-xerrors"
)

type apiError struct {
	Message string `json:"message"`
}

// sessionController owns the single active session and the collaborators the
// step flow needs. One vehicle is processed per session at a time.
type sessionController struct {
	mu              sync.Mutex
	state           *parking.SessionState
	slotDetector    vision.Detector
	vehicleDetector vision.Detector
	planner         parking.PathPlanner
	sensor          parking.IntensitySensor
	store           db.HistoryStore
	producer        *events.Producer
}

func newSessionController(
	slotDetector, vehicleDetector vision.Detector,
	planner parking.PathPlanner,
	sensor parking.IntensitySensor,
	store db.HistoryStore,
	producer *events.Producer,
) *sessionController {
	return &sessionController{
		state:           parking.NewSession(),
		slotDetector:    slotDetector,
		vehicleDetector: vehicleDetector,
		planner:         planner,
		sensor:          sensor,
		store:           store,
		producer:        producer,
	}
}

// DetectSlots runs the slot model over the lot image and normalizes the batch
// into the session. On failure the session keeps its prior data and records a
// single human-readable message.
func (c *sessionController) DetectSlots(ctx context.Context, image []byte, filename string) ([]parking.Slot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	batch, err := c.slotDetector.Detect(ctx, image, filename)
	if err != nil {
		c.state.SetError("slot detection failed: " + err.Error())
		return nil, err
	}
	if err := c.state.ApplySlots(batch); err != nil {
		c.state.SetError(err.Error())
		return nil, err
	}
	return c.state.Slots, nil
}

// DetectVehicle classifies the vehicle image into a canonical category.
func (c *sessionController) DetectVehicle(ctx context.Context, image []byte, filename string) (*parking.VehicleDetection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	batch, err := c.vehicleDetector.Detect(ctx, image, filename)
	if err != nil {
		c.state.SetError("vehicle detection failed: " + err.Error())
		return nil, err
	}
	if err := c.state.ApplyVehicle(batch); err != nil {
		c.state.SetError(err.Error())
		return nil, err
	}
	return c.state.Vehicle, nil
}

// Allocate runs the policy engine and route pipeline, then persists and
// publishes the allocation record. Storage failures are logged, not fatal.
func (c *sessionController) Allocate(ctx context.Context) (*parking.SessionState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.state.ApplyAllocation(ctx, c.planner, c.sensor); err != nil {
		c.state.SetError(err.Error())
		return nil, err
	}

	record, err := c.state.Record()
	if err == nil {
		if c.store != nil {
			if err := c.store.SaveAllocation(record); err != nil {
				log.Printf("failed to save allocation record: %v", err)
			}
		}
		if c.producer != nil {
			if err := c.producer.PublishAllocation(record); err != nil {
				log.Printf("failed to publish allocation event: %v", err)
			}
		}
	}

	return c.state, nil
}

// OverrideIntensity applies a manual traffic reading and reselects the route.
func (c *sessionController) OverrideIntensity(pathID, value int) (*parking.SessionState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.state.OverrideIntensity(pathID, value); err != nil {
		c.state.SetError(err.Error())
		return nil, err
	}
	return c.state, nil
}

// Reset clears every derived entity back to the initial step.
func (c *sessionController) Reset() *parking.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Reset()
	return c.state
}

// Snapshot returns the current session for display.
func (c *sessionController) Snapshot() *parking.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		w.Header().Set("Access-Control-Allow-Origin", "*")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode JSON response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, apiError{Message: message})
}

// statusFor maps the failure taxonomy onto HTTP statuses.
func statusFor(err error) int {
	var statusErr *vision.StatusError
	switch {
	case errors.Is(err, vision.ErrMissingAPIKey):
		return http.StatusInternalServerError
	case errors.As(err, &statusErr):
		return http.StatusBadGateway
	case errors.Is(err, vision.ErrNoDetections),
		errors.Is(err, parking.ErrNoSlotDetections),
		errors.Is(err, parking.ErrNoVehicleDetections):
		return http.StatusUnprocessableEntity
	case errors.Is(err, parking.ErrNoEmptySlots):
		return http.StatusConflict
	case errors.Is(err, parking.ErrPathNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func allowMethods(w http.ResponseWriter, r *http.Request, methods string) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return false
	}
	if !strings.Contains(methods, r.Method) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// readImageUpload pulls the uploaded image out of the multipart form. A
// missing image is an input-validation failure: the handler answers 400 and
// the session stays untouched.
func readImageUpload(r *http.Request) ([]byte, string, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, "", errors.New("invalid upload payload")
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, "", errors.New("image is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		return nil, "", errors.New("unable to read image upload")
	}
	return data, header.Filename, nil
}

func newSlotDetectionHandler(c *sessionController) http.HandlerFunc {
	logger := utils.GetLogger()
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost) {
			return
		}
		ctx := r.Context()

		image, filename, err := readImageUpload(r)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		slots, err := c.DetectSlots(ctx, image, filename)
		if err != nil {
			logger.ErrorContext(ctx, "slot detection failed", slog.Any("error", xerrors.New(err)))
			writeJSONError(w, statusFor(err), "slot detection failed: "+err.Error())
			return
		}

		log.Printf("[HTTP] Detected %d slots (%d empty)", len(slots), len(parking.EmptySlots(slots)))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"slots":      slots,
			"totalSlots": len(slots),
			"emptySlots": len(parking.EmptySlots(slots)),
		})
	}
}

func newVehicleDetectionHandler(c *sessionController) http.HandlerFunc {
	logger := utils.GetLogger()
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost) {
			return
		}
		ctx := r.Context()

		image, filename, err := readImageUpload(r)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		vehicle, err := c.DetectVehicle(ctx, image, filename)
		if err != nil {
			logger.ErrorContext(ctx, "vehicle detection failed", slog.Any("error", xerrors.New(err)))
			writeJSONError(w, statusFor(err), "vehicle detection failed: "+err.Error())
			return
		}

		log.Printf("[HTTP] Classified vehicle %q as %s", vehicle.Label, vehicle.Category)
		writeJSON(w, http.StatusOK, vehicle)
	}
}

func newAllocateHandler(c *sessionController) http.HandlerFunc {
	logger := utils.GetLogger()
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost) {
			return
		}
		ctx := r.Context()

		state, err := c.Allocate(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "allocation failed", slog.Any("error", xerrors.New(err)))
			writeJSONError(w, statusFor(err), err.Error())
			return
		}

		comparison, _ := parking.ScoreTable(state.Paths, parking.ComparisonProfile)
		log.Printf("[HTTP] Allocated slot %d, optimal route %s", state.Allocated.Number, state.Optimal.Name)
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"allocatedSlot":    state.Allocated,
			"paths":            state.Paths,
			"optimalPath":      state.Optimal,
			"comparisonScores": comparison,
		})
	}
}

type intensityRequest struct {
	PathID    int `json:"pathId"`
	Intensity int `json:"intensity"`
}

func newIntensityHandler(c *sessionController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost) {
			return
		}

		var req intensityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid intensity payload")
			return
		}

		state, err := c.OverrideIntensity(req.PathID, req.Intensity)
		if err != nil {
			writeJSONError(w, statusFor(err), err.Error())
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"paths":       state.Paths,
			"optimalPath": state.Optimal,
		})
	}
}

func newResetHandler(c *sessionController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost) {
			return
		}
		state := c.Reset()
		log.Printf("[HTTP] Session %s reset", state.ID)
		writeJSON(w, http.StatusOK, state)
	}
}

func newSessionHandler(c *sessionController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet) {
			return
		}
		writeJSON(w, http.StatusOK, c.Snapshot())
	}
}

func newAllocationsHandler(store db.HistoryStore) http.HandlerFunc {
	logger := utils.GetLogger()
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet) {
			return
		}
		ctx := r.Context()

		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		if store == nil {
			writeJSON(w, http.StatusOK, []models.AllocationRecord{})
			return
		}

		allocations, err := store.RecentAllocations(limit)
		if err != nil {
			logger.ErrorContext(ctx, "failed to load allocations", slog.Any("error", xerrors.New(err)))
			writeJSONError(w, http.StatusInternalServerError, "failed to load allocations")
			return
		}
		if allocations == nil {
			allocations = []models.AllocationRecord{}
		}

		writeJSON(w, http.StatusOK, allocations)
	}
}

func newExplainHandler(c *sessionController, advisor *chat.GeminiClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet) {
			return
		}
		if advisor == nil {
			writeJSONError(w, http.StatusServiceUnavailable, "assistant is not configured")
			return
		}

		explanation, err := advisor.ExplainSession(c.Snapshot())
		if err != nil {
			writeJSONError(w, http.StatusConflict, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"explanation": explanation})
	}
}

func serve(protocol, port string) {
	protocol = strings.ToLower(protocol)
	var allowOriginFunc = func(r *http.Request) bool {
		return true
	}

	serviceURL := utils.GetEnv("DETECTION_SERVICE_URL", "https://detect.roboflow.com")
	apiKey := utils.GetEnv("DETECTION_API_KEY", "")
	if apiKey == "" {
		log.Println("WARNING: DETECTION_API_KEY is not set; detection calls will be rejected before reaching the service.")
	}
	slotModel := utils.GetEnv("SLOT_MODEL_ID", "parking-space-detection/3")
	vehicleModel := utils.GetEnv("VEHICLE_MODEL_ID", "vehicle-classification/1")

	slotDetector := vision.NewSlotClient(serviceURL, slotModel, apiKey)
	vehicleDetector := vision.NewVehicleClient(serviceURL, vehicleModel, apiKey)

	senseDelayMs, err := strconv.Atoi(utils.GetEnv("PATH_SENSE_DELAY_MS", "2000"))
	if err != nil {
		log.Fatalf("invalid PATH_SENSE_DELAY_MS value: %v", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	planner := parking.NewSyntheticPlanner(rng)
	sensor := parking.NewSimulatedSensor(rng, time.Duration(senseDelayMs)*time.Millisecond)

	var store db.HistoryStore
	dbType := utils.GetEnv("DB_TYPE", "file")
	if dbType == "file" {
		store = records.NewFileStore(utils.GetEnv("ALLOCATIONS_PATH", filepath.Join("storage", "allocations.json")))
	} else {
		store, err = db.NewDBClient()
		if err != nil {
			log.Fatalf("failed to initialize history store: %v", err)
		}
	}
	defer store.Close()

	var producer *events.Producer
	if servers := utils.GetEnv("KAFKA_BOOTSTRAP_SERVERS", ""); servers != "" {
		topic := utils.GetEnv("KAFKA_TOPIC", "parking.allocations")
		producer, err = events.NewProducer(servers, topic)
		if err != nil {
			log.Printf("Failed to start Kafka producer: %v", err)
		} else {
			defer producer.Close()
		}
	}

	var advisor *chat.GeminiClient
	if utils.GetEnv("GEMINI_API_KEY", "") != "" {
		advisor, err = chat.NewGeminiClient()
		if err != nil {
			log.Printf("Failed to start assistant: %v", err)
		}
	}

	controller := newSessionController(slotDetector, vehicleDetector, planner, sensor, store, producer)
	socketCtrl := newSocketController(controller)

	server := socketio.NewServer(&engineio.Options{
		PingTimeout:  60 * time.Second,
		PingInterval: 25 * time.Second,
		Transports: []transport.Transport{
			&websocket.Transport{
				CheckOrigin: allowOriginFunc,
			},
			&polling.Transport{
				CheckOrigin: allowOriginFunc,
			},
		},
	})

	server.OnConnect("/", func(socket socketio.Conn) error {
		socket.SetContext("")
		log.Printf("CONNECTED: %s, remote addr: %s\n", socket.ID(), socket.RemoteAddr())
		socketCtrl.emitSession(socket)
		return nil
	})

	server.OnEvent("/", "requestSession", func(socket socketio.Conn) {
		socketCtrl.emitSession(socket)
	})

	server.OnEvent("/", "detectSlots", func(socket socketio.Conn, msg string) {
		go withRecovery(socket, "detectSlots", func() {
			socketCtrl.handleDetectSlots(socket, msg)
		})
	})

	server.OnEvent("/", "detectVehicle", func(socket socketio.Conn, msg string) {
		go withRecovery(socket, "detectVehicle", func() {
			socketCtrl.handleDetectVehicle(socket, msg)
		})
	})

	server.OnEvent("/", "allocate", func(socket socketio.Conn) {
		go withRecovery(socket, "allocate", func() {
			socketCtrl.handleAllocate(socket)
		})
	})

	server.OnEvent("/", "overrideIntensity", func(socket socketio.Conn, msg string) {
		socketCtrl.handleOverrideIntensity(socket, msg)
	})

	server.OnEvent("/", "resetSession", func(socket socketio.Conn) {
		socketCtrl.handleReset(socket)
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		log.Println("meet error:", e)
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		log.Printf("Socket disconnected - ID: %s, Reason: %s\n", s.ID(), reason)
	})

	go func() {
		if err := server.Serve(); err != nil {
			log.Fatalf("socketio listen error: %s\n", err)
		}
	}()
	defer server.Close()

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", server)
	mux.HandleFunc("/api/slots/detect", newSlotDetectionHandler(controller))
	mux.HandleFunc("/api/vehicle/detect", newVehicleDetectionHandler(controller))
	mux.HandleFunc("/api/allocate", newAllocateHandler(controller))
	mux.HandleFunc("/api/paths/intensity", newIntensityHandler(controller))
	mux.HandleFunc("/api/session", newSessionHandler(controller))
	mux.HandleFunc("/api/session/reset", newResetHandler(controller))
	mux.HandleFunc("/api/allocations", newAllocationsHandler(store))
	mux.HandleFunc("/api/explain", newExplainHandler(controller, advisor))
	mux.Handle("/", http.FileServer(http.Dir("static")))

	serveHTTP(server, protocol == "https", port, mux)
}

func withRecovery(socket socketio.Conn, event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic in %s for socket %s: %v\n", event, socket.ID(), r)
			socket.Emit("allocationError", map[string]string{"message": "internal server error during processing"})
		}
	}()
	fn()
}

func serveHTTP(socketServer *socketio.Server, serveHTTPS bool, port string, handler http.Handler) {
	if handler == nil {
		handler = socketServer
	}
	if serveHTTPS {
		httpsAddr := ":" + port
		httpsServer := &http.Server{
			Addr: httpsAddr,
			TLSConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			Handler: handler,
		}

		certKey := utils.GetEnv("CERT_KEY", "")
		certFile := utils.GetEnv("CERT_FILE", "")
		if certKey == "" || certFile == "" {
			log.Fatal("Missing cert")
		}

		log.Printf("Starting HTTPS server on %s\n", httpsAddr)
		if err := httpsServer.ListenAndServeTLS(certFile, certKey); err != nil {
			log.Fatalf("HTTPS server ListenAndServeTLS: %v", err)
		}
	}

	log.Printf("Starting HTTP server on port %v", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("HTTP server ListenAndServe: %v", err)
	}
}
