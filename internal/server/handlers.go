package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	errs "github.com/matzehuels/trialviz/pkg/errors"
	"github.com/matzehuels/trialviz/pkg/pipeline"
	"github.com/matzehuels/trialviz/pkg/render/reconcile"
	"github.com/matzehuels/trialviz/pkg/render/sink"
	"github.com/matzehuels/trialviz/pkg/trace"
)

// inlineSource names sessions created from a dataset in the request body.
const inlineSource = "inline"

type createRequest struct {
	Source  string            `json:"source,omitempty"`
	Dataset json.RawMessage   `json:"dataset,omitempty"`
	Trial1  int               `json:"trial1,omitempty"`
	Trial2  int               `json:"trial2,omitempty"`
	Config  *reconcile.Config `json:"config,omitempty"`
}

type sessionInfo struct {
	ID        string               `json:"id"`
	Source    string               `json:"source"`
	Created   time.Time            `json:"created"`
	Touched   time.Time            `json:"touched"`
	Trial1    int                  `json:"trial1,omitempty"`
	Trial2    int                  `json:"trial2,omitempty"`
	Diff      bool                 `json:"diff"`
	Seq       int                  `json:"seq"`
	Selected  string               `json:"selected,omitempty"`
	Config    *reconcile.Config    `json:"config,omitempty"`
	Transform *reconcile.Transform `json:"transform,omitempty"`
	Tree      *treeStats           `json:"tree,omitempty"`
	Dropped   int                  `json:"dropped"`
}

type treeStats struct {
	Nodes        int  `json:"nodes"`
	Visible      int  `json:"visible"`
	MaxDepth     int  `json:"max_depth"`
	Matched      int  `json:"matched"`
	OnlyTrial1   int  `json:"only_trial1"`
	OnlyTrial2   int  `json:"only_trial2"`
	Reparented   int  `json:"reparented"`
	Reclassified int  `json:"reclassified"`
	Synthetic    bool `json:"synthetic_root"`
}

// changeKeys lists the keys of the elements entering, updating and exiting
// in one pass.
type changeKeys struct {
	Enter  []string `json:"enter"`
	Update []string `json:"update"`
	Exit   []string `json:"exit"`
}

type passSummary struct {
	Seq        int               `json:"seq"`
	Trigger    reconcile.Trigger `json:"trigger"`
	Anchor     string            `json:"anchor,omitempty"`
	Empty      bool              `json:"empty,omitempty"`
	DurationMS int64             `json:"duration_ms"`
	Selected   string            `json:"selected,omitempty"`
	Nodes      changeKeys        `json:"nodes"`
	Edges      changeKeys        `json:"edges"`
	Labels     changeKeys        `json:"labels"`
}

func keysOf[T any](d reconcile.Diff[T]) changeKeys {
	keys := func(cs []reconcile.Change[T]) []string {
		out := make([]string, len(cs))
		for i, c := range cs {
			out[i] = c.Key
		}
		return out
	}
	return changeKeys{Enter: keys(d.Enter), Update: keys(d.Update), Exit: keys(d.Exit)}
}

func summarize(p *reconcile.Pass, eng *reconcile.Engine) passSummary {
	return passSummary{
		Seq:        p.Seq,
		Trigger:    p.Trigger,
		Anchor:     p.Anchor,
		Empty:      p.Empty,
		DurationMS: p.Duration.Milliseconds(),
		Selected:   eng.Selected(),
		Nodes:      keysOf(p.Nodes),
		Edges:      keysOf(p.Edges),
		Labels:     keysOf(p.Labels),
	}
}

// info describes a session. Callers hold sess.mu.
func (sess *session) info(detailed bool) sessionInfo {
	si := sessionInfo{
		ID:      sess.id,
		Source:  sess.source,
		Created: sess.created,
		Touched: sess.touched,
	}
	if sess.eng == nil {
		return si
	}
	if ds := sess.eng.Dataset(); ds != nil {
		si.Trial1, si.Trial2, si.Diff = ds.Trial1, ds.Trial2, ds.IsDiff()
	}
	x := sess.eng.Export()
	si.Seq = x.Seq
	si.Selected = sess.eng.Selected()
	si.Dropped = len(sess.eng.Report().Problems)
	if !detailed {
		return si
	}
	cfg, tr := sess.eng.Config(), sess.eng.Transform()
	si.Config, si.Transform = &cfg, &tr
	if t := sess.eng.Tree(); t != nil {
		st := t.Stats()
		si.Tree = &treeStats{
			Nodes:        st.Nodes,
			Visible:      st.Visible,
			MaxDepth:     st.MaxDepth,
			Matched:      st.Matched,
			OnlyTrial1:   st.OnlyTrial1,
			OnlyTrial2:   st.OnlyTrial2,
			Reparented:   st.Reparented,
			Reclassified: st.Reclassified,
			Synthetic:    st.Synthetic,
		}
	}
	return si
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid request body")
	}
	return nil
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	cfg := s.config
	req := createRequest{Config: &cfg}
	if err := decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	source := req.Source
	if len(req.Dataset) > 0 {
		source = inlineSource
	}
	opts := pipeline.Options{
		Source: source,
		Trial1: req.Trial1,
		Trial2: req.Trial2,
		Config: *req.Config,
		Logger: s.logger,
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		writeError(w, err)
		return
	}

	var ds *trace.Dataset
	var err error
	switch {
	case source == inlineSource:
		ds, err = trace.ParseDataset(req.Dataset)
		if err == nil && opts.Trial1 > 0 {
			ds.Trial1, ds.Trial2 = opts.Trial1, opts.Trial2
		}
		if err != nil && errs.GetCode(err) == "" {
			err = errs.Wrap(errs.ErrCodeInvalidDataset, err, "invalid dataset")
		}
	case !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://"):
		err = errs.New(errs.ErrCodeInvalidInput, "source must be an http(s) URL or an inline dataset")
	default:
		ds, err = s.runner.Load(r.Context(), opts)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	sess := newSession(source, opts)
	eng, err := s.runner.Build(r.Context(), ds, opts, reconcile.WithCallbacks(sess.callbacks()))
	if err != nil {
		writeError(w, err)
		return
	}
	sess.eng = eng
	if evicted := s.sessions.add(sess); evicted != "" {
		s.logger.Info("evicted session", "id", evicted)
	}
	s.logger.Info("created session", "id", sess.id, "source", source, "nodes", len(ds.Nodes))

	sess.mu.Lock()
	defer sess.mu.Unlock()
	writeJSON(w, http.StatusCreated, sess.info(true))
}

func (s *Server) listSessions(w http.ResponseWriter, _ *http.Request) {
	out := []sessionInfo{}
	for _, sess := range s.sessions.list() {
		sess.mu.Lock()
		out = append(out, sess.info(false))
		sess.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := errs.ValidateSessionID(id); err != nil {
		writeError(w, err)
		return
	}
	if !s.sessions.remove(id) {
		writeError(w, errs.New(errs.ErrCodeSessionNotFound, "no session %s", id))
		return
	}
	s.logger.Info("deleted session", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session)

// withSession resolves {id} and runs h with the session locked.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.get(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		sess.mu.Lock()
		defer sess.mu.Unlock()
		sess.touched = time.Now()
		h(w, r, sess)
	}
}

func (s *Server) getSession(w http.ResponseWriter, _ *http.Request, sess *session) {
	writeJSON(w, http.StatusOK, sess.info(true))
}

var contentTypes = map[string]string{
	sink.FormatSVG:      "image/svg+xml",
	sink.FormatGraphviz: "image/svg+xml",
	sink.FormatJSON:     "application/json",
	sink.FormatDOT:      "text/vnd.graphviz",
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, sess *session) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = sink.FormatJSON
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		writeError(w, err)
		return
	}
	opts := sess.opts
	opts.Legend = q.Has("legend")
	opts.Detailed = q.Has("detailed")
	opts.Title = q.Get("title")

	data, err := pipeline.Render(r.Context(), sess.eng.Export(), format, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[format])
	_, _ = w.Write(data)
}

func (s *Server) click(w http.ResponseWriter, r *http.Request, sess *session) {
	p, err := sess.eng.OnNodeClick(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summarize(p, sess.eng))
}

func (s *Server) ctrlClick(w http.ResponseWriter, r *http.Request, sess *session) {
	sess.compare = nil
	if err := sess.eng.OnNodeCtrlClick(chi.URLParam(r, "key")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.compare)
}

func (s *Server) changeConfig(w http.ResponseWriter, r *http.Request, sess *session) {
	var ch reconcile.ConfigChange
	if err := decode(w, r, &ch); err != nil {
		writeError(w, err)
		return
	}
	p := sess.eng.OnConfigChange(ch)
	sess.opts.Config = sess.eng.Config()
	writeJSON(w, http.StatusOK, summarize(p, sess.eng))
}

func (s *Server) transform(w http.ResponseWriter, r *http.Request, sess *session) {
	var t reconcile.Transform
	if err := decode(w, r, &t); err != nil {
		writeError(w, err)
		return
	}
	if t.K <= 0 {
		writeError(w, errs.New(errs.ErrCodeInvalidInput, "zoom factor must be positive, got %g", t.K))
		return
	}
	sess.eng.OnViewportTransform(t)
	writeJSON(w, http.StatusOK, sess.eng.Transform())
}

func (s *Server) collapseAll(w http.ResponseWriter, _ *http.Request, sess *session) {
	writeJSON(w, http.StatusOK, summarize(sess.eng.CollapseAll(), sess.eng))
}

func (s *Server) expandAll(w http.ResponseWriter, _ *http.Request, sess *session) {
	writeJSON(w, http.StatusOK, summarize(sess.eng.ExpandAll(), sess.eng))
}

func (s *Server) collapseBelow(w http.ResponseWriter, r *http.Request, sess *session) {
	depth, err := strconv.Atoi(r.URL.Query().Get("depth"))
	if err != nil || depth < 0 {
		if err == nil {
			err = errors.New("negative depth")
		}
		writeError(w, errs.Wrap(errs.ErrCodeInvalidInput, err, "depth must be a non-negative integer"))
		return
	}
	writeJSON(w, http.StatusOK, summarize(sess.eng.CollapseBelow(depth), sess.eng))
}
