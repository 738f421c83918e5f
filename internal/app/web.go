package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/teleop_joy/internal/auth"
	"github.com/relabs-tech/teleop_joy/internal/config"
	"github.com/relabs-tech/teleop_joy/internal/joy"
	"github.com/relabs-tech/teleop_joy/internal/teleop"
	"github.com/relabs-tech/teleop_joy/internal/twist"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is a request from a browser on /ws/teleop.
type WSMessage struct {
	Action  string          `json:"action"` // set_params, get_params, joy
	ID      string          `json:"id,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Axes    []float64       `json:"axes,omitempty"`
	Buttons []int64         `json:"buttons,omitempty"`
}

// WSResponse is pushed to browsers on /ws/teleop.
type WSResponse struct {
	Type    string `json:"type"` // cmd_vel, status, params, param_result, error
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type wsClient struct {
	conn     *websocket.Conn
	mu       sync.Mutex
	canWrite bool
}

func (c *wsClient) send(resp WSResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(resp)
}

// webServer caches the latest teleop topics for HTTP clients and relays
// browser requests back onto MQTT.
type webServer struct {
	cfg      *config.Config
	pub      publisher
	verifier *auth.Verifier

	mu         sync.RWMutex
	lastCmd    twist.Message
	haveCmd    bool
	lastStatus teleop.Status
	haveStatus bool
	params     map[string]any

	clientsMu sync.Mutex
	clients   map[*wsClient]struct{}
}

func newWebServer(cfg *config.Config, pub publisher, verifier *auth.Verifier) *webServer {
	return &webServer{
		cfg:      cfg,
		pub:      pub,
		verifier: verifier,
		clients:  make(map[*wsClient]struct{}),
	}
}

func (s *webServer) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/cmd_vel", s.handleCmdVel)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/params", s.handleParams)
	mux.HandleFunc("/ws/teleop", s.handleTeleopWS)

	// Static files from ./web as the root
	mux.Handle("/", http.FileServer(http.Dir("web")))
	return mux
}

func (s *webServer) onCmdVel(payload []byte) {
	var m twist.Message
	if err := json.Unmarshal(payload, &m); err != nil {
		log.Printf("web: cmd_vel unmarshal error: %v", err)
		return
	}
	s.mu.Lock()
	s.lastCmd, s.haveCmd = m, true
	s.mu.Unlock()
	s.broadcast(WSResponse{Type: "cmd_vel", Data: m})
}

func (s *webServer) onStatus(payload []byte) {
	var st teleop.Status
	if err := json.Unmarshal(payload, &st); err != nil {
		log.Printf("web: status unmarshal error: %v", err)
		return
	}
	s.mu.Lock()
	s.lastStatus, s.haveStatus = st, true
	s.mu.Unlock()
	s.broadcast(WSResponse{Type: "status", Data: st})
}

func (s *webServer) onParamState(payload []byte) {
	var params map[string]any
	if err := json.Unmarshal(payload, &params); err != nil {
		log.Printf("web: param state unmarshal error: %v", err)
		return
	}
	s.mu.Lock()
	s.params = params
	s.mu.Unlock()
	s.broadcast(WSResponse{Type: "params", Data: params})
}

func (s *webServer) onParamResult(payload []byte) {
	var r teleop.ParamResponse
	if err := json.Unmarshal(payload, &r); err != nil {
		log.Printf("web: param result unmarshal error: %v", err)
		return
	}
	s.broadcast(WSResponse{Type: "param_result", Data: r})
}

func (s *webServer) broadcast(resp WSResponse) {
	s.clientsMu.Lock()
	clients := make([]*wsClient, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.clientsMu.Unlock()

	for _, c := range clients {
		if err := c.send(resp); err != nil {
			log.Printf("web: websocket write error: %v", err)
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func (s *webServer) handleCmdVel(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.haveCmd {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.lastCmd)
}

func (s *webServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.haveStatus {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.lastStatus)
}

func (s *webServer) handleParams(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.params == nil {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.params)
}

// handleTeleopWS streams teleop topics to a browser and accepts its requests.
func (s *webServer) handleTeleopWS(w http.ResponseWriter, r *http.Request) {
	canWrite := true
	if sub, err := s.verifier.Authorize(r); err != nil {
		log.Printf("web: websocket client is read-only: %v", err)
		canWrite = false
	} else if sub != "" {
		log.Printf("web: websocket operator %s connected", sub)
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	client := &wsClient{conn: conn, canWrite: canWrite}
	s.clientsMu.Lock()
	s.clients[client] = struct{}{}
	s.clientsMu.Unlock()
	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, client)
		s.clientsMu.Unlock()
	}()

	// Main message loop
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("web: websocket read error: %v", err)
			}
			return
		}
		if err := s.handleAction(client, msg); err != nil {
			if sendErr := client.send(WSResponse{Type: "error", Message: err.Error()}); sendErr != nil {
				log.Printf("web: websocket write error: %v", sendErr)
				return
			}
		}
	}
}

func (s *webServer) handleAction(c *wsClient, msg WSMessage) error {
	switch msg.Action {
	case "get_params":
		s.mu.RLock()
		params := s.params
		s.mu.RUnlock()
		if params == nil {
			return fmt.Errorf("no parameters received yet")
		}
		return c.send(WSResponse{Type: "params", Data: params})

	case "set_params":
		if !c.canWrite {
			return fmt.Errorf("set_params requires a valid token")
		}
		if len(msg.Params) == 0 {
			return fmt.Errorf("set_params needs params")
		}
		id := msg.ID
		if id == "" {
			id = uuid.NewString()
		}
		literals, err := paramLiterals("", msg.Params)
		if err != nil {
			return err
		}
		payload, err := teleop.EncodeParamRequest(id, literals)
		if err != nil {
			return err
		}
		publishPayload(s.pub, s.cfg.TopicParamSet, false, payload, "web")
		log.Printf("web: parameter request %s forwarded", id)
		return nil

	case "joy":
		if !c.canWrite {
			return fmt.Errorf("joy requires a valid token")
		}
		publishJSON(s.pub, s.cfg.TopicJoy, false, joy.Sample{
			Axes:    msg.Axes,
			Buttons: msg.Buttons,
			StampMs: time.Now().UnixMilli(),
		}, "web")
		return nil

	default:
		return fmt.Errorf("unknown action %q", msg.Action)
	}
}

// RunWeb serves the teleop dashboard and API.
func RunWeb() error {
	cfg := config.Get()
	defer setupLogging(cfg).Close()

	client, err := connectMQTT(cfg, config.ClientID(cfg.MQTTClientIDWeb, "web"), "web")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	verifier := auth.NewVerifier(cfg.WebJWTSecret)
	if verifier.Enabled() {
		log.Println("web: set_params and joy require a token")
	}
	srv := newWebServer(cfg, client, verifier)

	for topic, handler := range map[string]func([]byte){
		cfg.TopicCmdVel:      srv.onCmdVel,
		cfg.TopicStatus:      srv.onStatus,
		cfg.TopicParamState:  srv.onParamState,
		cfg.TopicParamResult: srv.onParamResult,
	} {
		if err := subscribe(client, topic, "web", handler); err != nil {
			return err
		}
	}

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: server listening on %s", addr)
	return http.ListenAndServe(addr, srv.routes())
}

// paramLiterals turns the params object of a set_params action into
// operator literals. Numbers keep the text they were sent with, so 1.0
// stays a double. JSON.stringify writes 1.0 as 1, so browsers send
// doubles as strings ("1.0"); a string's content is the literal text.
// Nested objects flatten into dotted names.
func paramLiterals(prefix string, raw json.RawMessage) ([]teleop.Literal, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("params must be an object: %w", err)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []teleop.Literal
	for _, key := range keys {
		name := key
		if prefix != "" {
			name = prefix + "." + key
		}
		v := bytes.TrimSpace(fields[key])
		switch {
		case len(v) > 0 && v[0] == '{':
			nested, err := paramLiterals(name, v)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		case len(v) > 0 && v[0] == '"':
			var text string
			if err := json.Unmarshal(v, &text); err != nil {
				return nil, fmt.Errorf("value for %q: %w", name, err)
			}
			out = append(out, teleop.Literal{Name: name, Text: text})
		default:
			out = append(out, teleop.Literal{Name: name, Text: string(v)})
		}
	}
	return out, nil
}
