package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/a-bouts/nav-sim/land"
	"github.com/a-bouts/nav-sim/latlon"
	"github.com/a-bouts/nav-sim/polar"
	"github.com/a-bouts/nav-sim/race"
	"github.com/a-bouts/nav-sim/sim"
	"github.com/a-bouts/nav-sim/steering"
	"github.com/a-bouts/nav-sim/wind"
)

// Config is what the server needs to run sessions. Land and Notifier are
// optional.
type Config struct {
	Land     *land.Land
	Polars   *polar.Registry
	Races    *race.Races
	Windows  sim.Windows
	Loader   wind.Loader
	Notifier sim.Notifier
	TickRate time.Duration
}

type session struct {
	runner *sim.Runner
	cancel context.CancelFunc
}

type server struct {
	ctx    context.Context
	config Config

	lock     sync.RWMutex
	sessions map[string]*session

	// shared by the wind queries, one at a time
	windLock sync.Mutex
	wind     *wind.Interpolator
}

// InitServer returns the HTTP handler. Sessions live until deleted or
// until ctx is done.
func InitServer(ctx context.Context, config Config) http.Handler {

	router := mux.NewRouter().StrictSlash(true)

	s := &server{
		ctx:      ctx,
		config:   config,
		sessions: make(map[string]*session),
		wind:     wind.NewInterpolator(config.Loader),
	}

	router.HandleFunc("/sim/-/healthz", s.healthz).Methods(http.MethodGet)

	apiV1 := router.PathPrefix("/sim/api/v1").Subrouter()
	apiV1.HandleFunc("/courses", s.getCourses).Methods(http.MethodGet)
	apiV1.HandleFunc("/polars/{id}/speed", s.speed).Methods(http.MethodGet)
	apiV1.HandleFunc("/polars/{id}/vmg", s.vmg).Methods(http.MethodGet)
	apiV1.HandleFunc("/wind/{lat}/{lon}", s.windAt).Methods(http.MethodGet)
	apiV1.HandleFunc("/sessions", s.createSession).Methods(http.MethodPost)
	apiV1.HandleFunc("/sessions/{id}", s.getSession).Methods(http.MethodGet)
	apiV1.HandleFunc("/sessions/{id}/steer", s.steer).Methods(http.MethodPost)
	apiV1.HandleFunc("/sessions/{id}", s.deleteSession).Methods(http.MethodDelete)

	return handlers.RecoveryHandler(handlers.RecoveryLogger(log.StandardLogger()))(
		handlers.CORS(
			handlers.AllowedOrigins([]string{"*"}),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete}),
			handlers.AllowedHeaders([]string{"Content-Type"}),
		)(router))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	type problem struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, problem{Error: err.Error()})
}

func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s'", name, v)
	}
	return f, nil
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	type health struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}

	s.lock.RLock()
	n := len(s.sessions)
	s.lock.RUnlock()

	writeJSON(w, http.StatusOK, health{Status: "Ok", Sessions: n})
}

func (s *server) getCourses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.config.Races.Ids())
}

func (s *server) polar(w http.ResponseWriter, r *http.Request) (*polar.Table, bool) {
	id := mux.Vars(r)["id"]
	p, err := s.config.Polars.Get(id)
	if err != nil {
		log.WithError(err).Warnf("Polar '%s' not available", id)
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return p, true
}

func (s *server) speed(w http.ResponseWriter, r *http.Request) {
	p, ok := s.polar(w, r)
	if !ok {
		return
	}

	tws, err := queryFloat(r, "tws", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	twa, err := queryFloat(r, "twa", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	type speedResult struct {
		Speed    float64 `json:"speed"`
		MaxSpeed float64 `json:"maxSpeed"`
	}
	writeJSON(w, http.StatusOK, speedResult{Speed: p.BoatSpeed(tws, twa), MaxSpeed: p.MaxSpeed()})
}

func (s *server) vmg(w http.ResponseWriter, r *http.Request) {
	p, ok := s.polar(w, r)
	if !ok {
		return
	}

	mode, err := polar.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var values [3]float64
	for i, name := range []string{"tws", "windFrom", "heading"} {
		if values[i], err = queryFloat(r, name, 0); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	tws, windFrom, heading := values[0], values[1], values[2]

	type vmgResult struct {
		Mode    string  `json:"mode"`
		Angle   float64 `json:"angle"`
		Heading float64 `json:"heading"`
	}
	writeJSON(w, http.StatusOK, vmgResult{
		Mode:    mode.String(),
		Angle:   p.OptimalVMGAngle(tws, mode),
		Heading: p.OptimalVMGHeading(windFrom, tws, heading, mode),
	})
}

func (s *server) windAt(w http.ResponseWriter, r *http.Request) {
	lat, err := strconv.ParseFloat(mux.Vars(r)["lat"], 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	lon, err := strconv.ParseFloat(mux.Vars(r)["lon"], 64)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	t := time.Now().UTC()
	if v := r.URL.Query().Get("time"); v != "" {
		if t, err = time.Parse(time.RFC3339, v); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	current, next, err := s.config.Windows.Window(t)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	s.windLock.Lock()
	defer s.windLock.Unlock()

	if err := s.wind.SetSources(r.Context(), current, next); err != nil {
		log.WithError(err).Errorf("Error loading wind for %s", t)
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if err := s.wind.Wait(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	u, factor, ok := s.wind.WindAt(latlon.LatLon{Lat: lat, Lon: lon}, t)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	type windResult struct {
		U      float64 `json:"u"`
		V      float64 `json:"v"`
		Wind   float64 `json:"wind"`
		Speed  float64 `json:"speed"`
		Factor float64 `json:"factor"`
	}
	res := windResult{U: u.U, V: u.V, Wind: u.From(), Speed: u.Knots(), Factor: factor}

	log.Debugf("Wind %s (%f,%f) : %.1f° %.1f kt", t.Format(time.RFC3339), lat, lon, res.Wind, res.Speed)

	writeJSON(w, http.StatusOK, res)
}

func (s *server) createSession(w http.ResponseWriter, req *http.Request) {
	fields := log.Fields{
		"action": "session",
	}
	if ip, err := getIp(req); err == nil {
		fields["IP"] = ip
	}
	requestLogger := log.WithFields(fields)

	var body struct {
		Course string `json:"course"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	c, ok := s.config.Races.Get(body.Course)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown course '%s'", body.Course))
		return
	}
	if err := c.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	p, err := s.config.Polars.Get(c.Polar)
	if err != nil {
		requestLogger.WithError(err).Errorf("Polar '%s' of course '%s' not available", c.Polar, c.Id)
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	checker, err := c.Checker(s.config.Land)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	id := uuid.NewString()
	env := sim.Environment{Course: c, Polar: p, Collision: checker}
	runner := sim.NewRunner(id, env, s.config.Windows, s.config.Loader, s.config.TickRate, s.config.Notifier)

	ctx, cancel := context.WithCancel(s.ctx)
	s.lock.Lock()
	s.sessions[id] = &session{runner: runner, cancel: cancel}
	s.lock.Unlock()

	go func() {
		if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).WithField("session", id).Error("Session stopped")
		}
	}()

	requestLogger.Infof("Session '%s' on course '%s'", id, c.Id)

	type created struct {
		Id string `json:"id"`
	}
	writeJSON(w, http.StatusCreated, created{Id: id})
}

func (s *server) session(w http.ResponseWriter, r *http.Request) (*session, bool) {
	id := mux.Vars(r)["id"]

	s.lock.RLock()
	sess, ok := s.sessions[id]
	s.lock.RUnlock()

	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown session '%s'", id))
	}
	return sess, ok
}

type sessionView struct {
	Id string `json:"id"`
	sim.Session
	Mode      string   `json:"mode"`
	LockedTWA *float64 `json:"lockedTwa,omitempty"`
	Running   bool     `json:"running"`
}

func (s *server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	state := sess.runner.Session()
	view := sessionView{Id: sess.runner.Id, Session: state, Mode: state.Mode(), Running: true}
	if twa, locked := state.LockedTWA(); locked {
		view.LockedTWA = &twa
	}
	select {
	case <-sess.runner.Done():
		view.Running = false
	default:
	}

	writeJSON(w, http.StatusOK, view)
}

type steerRequest struct {
	Action    string `json:"action"`
	Direction string `json:"direction,omitempty"`
	Mode      string `json:"mode,omitempty"`
}

func (s *server) steer(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var body steerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var err error
	runner := sess.runner
	switch strings.ToLower(body.Action) {
	case "turn":
		switch strings.ToLower(body.Direction) {
		case "left":
			err = runner.Turn(r.Context(), steering.Left)
		case "right":
			err = runner.Turn(r.Context(), steering.Right)
		default:
			writeError(w, http.StatusBadRequest, fmt.Errorf("unknown direction '%s'", body.Direction))
			return
		}
	case "stop":
		err = runner.StopTurn(r.Context())
	case "tack":
		err = runner.Tack(r.Context())
	case "lock":
		err = runner.ToggleLock(r.Context())
	case "vmg":
		mode, perr := polar.ParseMode(body.Mode)
		if perr != nil {
			writeError(w, http.StatusBadRequest, perr)
			return
		}
		err = runner.SteerVMG(r.Context(), mode)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown action '%s'", body.Action))
		return
	}

	if errors.Is(err, sim.ErrStopped) {
		writeError(w, http.StatusConflict, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *server) deleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	s.lock.Lock()
	delete(s.sessions, sess.runner.Id)
	s.lock.Unlock()

	sess.cancel()
	<-sess.runner.Done()

	log.Infof("Session '%s' deleted", sess.runner.Id)
	w.WriteHeader(http.StatusNoContent)
}

func getIp(r *http.Request) (string, error) {
	//Get IP from the X-REAL-IP header
	ip := r.Header.Get("X-REAL-IP")
	netIP := net.ParseIP(ip)
	if netIP != nil {
		return ip, nil
	}

	//Get IP from X-FORWARDED-FOR header
	ips := r.Header.Get("X-FORWARDED-FOR")
	splitIps := strings.Split(ips, ",")
	for _, ip := range splitIps {
		ip = strings.TrimSpace(ip)
		netIP := net.ParseIP(ip)
		if netIP != nil {
			return ip, nil
		}
	}

	//Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "", err
	}
	netIP = net.ParseIP(ip)
	if netIP != nil {
		return ip, nil
	}
	return "", fmt.Errorf("No valid ip found")
}
