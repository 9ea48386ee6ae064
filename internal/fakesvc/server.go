// Package fakesvc provides a fake BlockPress service for testing. It speaks
// the CBOR-RPC protocol over websocket, keeps posts, categories and accounts
// in memory, and serves the deployment status endpoint local networks expose
// for root-trust fetches.
//
// The websocket server side uses the gws library; the production client side
// stays on gorilla. Tests can seed content, register delegation tokens, and
// force per-method errors or delays.
package fakesvc

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/lxzan/gws"

	"github.com/gems-gallery/blockpress.go/internal/codec"
	"github.com/gems-gallery/blockpress.go/pkg/connection"
	"github.com/gems-gallery/blockpress.go/pkg/models"
)

type Server struct {
	mu         sync.Mutex
	posts      []models.Post
	categories []models.Category
	usernames  map[string]string // principal -> username
	tokens     map[string]string // delegation token -> principal
	sessions   map[*gws.Conn]string
	nextID     models.PostID

	// hasAccounts controls whether createUser/getUsername exist, mirroring
	// schema drift across service revisions.
	hasAccounts bool

	errs       map[string]*connection.RPCError
	delays     map[string]time.Duration
	statusHits int

	rootKey []byte
	codec   *codec.CBOR
	httpSrv *httptest.Server
}

func New() *Server {
	return &Server{
		usernames:   make(map[string]string),
		tokens:      make(map[string]string),
		sessions:    make(map[*gws.Conn]string),
		nextID:      1,
		hasAccounts: true,
		errs:        make(map[string]*connection.RPCError),
		delays:      make(map[string]time.Duration),
		rootKey:     []byte("fake-root-trust-material"),
		codec:       codec.NewCBOR(),
	}
}

// Start brings the service up and returns its websocket URL.
func (s *Server) Start() *url.URL {
	// Parallel handling lets a delayed response overtake later requests,
	// which is what response routing by request id is tested against.
	upgrader := gws.NewUpgrader(&wsHandler{srv: s}, &gws.ServerOption{
		ParallelEnabled: true,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", func(w http.ResponseWriter, r *http.Request) {
		socket, err := upgrader.Upgrade(w, r)
		if err != nil {
			return
		}
		go socket.ReadLoop()
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.statusHits++
		key := s.rootKey
		s.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"root_key": base64.StdEncoding.EncodeToString(key),
		})
	})

	s.httpSrv = httptest.NewServer(mux)

	u, err := url.Parse(strings.Replace(s.httpSrv.URL, "http://", "ws://", 1))
	if err != nil {
		panic(err)
	}
	return u
}

func (s *Server) Close() {
	if s.httpSrv != nil {
		s.httpSrv.Close()
	}
}

// SetAccounts toggles the account procedures on or off.
func (s *Server) SetAccounts(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasAccounts = enabled
}

// AddCategory seeds a category.
func (s *Server) AddCategory(c models.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories, c)
}

// SeedPost seeds a post and returns its id.
func (s *Server) SeedPost(title, body, category, author string) models.PostID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.posts = append(s.posts, models.Post{
		ID:        id,
		Title:     title,
		Body:      body,
		Author:    models.AuthorFromText(author),
		Timestamp: models.Timestamp(time.Now().UnixNano()),
		Category:  category,
	})
	return id
}

// RegisterToken maps a delegation token to a principal so that authenticate
// accepts it.
func (s *Server) RegisterToken(token, principal string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = principal
}

// FailWith forces every call to method to answer with the given error.
func (s *Server) FailWith(method connection.RPCFunction, e *connection.RPCError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[string(method)] = e
}

// SetDelay delays every response to method, for ordering tests.
func (s *Server) SetDelay(method connection.RPCFunction, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays[string(method)] = d
}

// StatusHits counts root-trust fetches served.
func (s *Server) StatusHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusHits
}

type wsHandler struct {
	gws.BuiltinEventHandler
	srv *Server
}

func (h *wsHandler) OnClose(socket *gws.Conn, err error) {
	h.srv.mu.Lock()
	delete(h.srv.sessions, socket)
	h.srv.mu.Unlock()
}

func (h *wsHandler) OnMessage(socket *gws.Conn, message *gws.Message) {
	defer message.Close()

	var req connection.RPCRequest
	if err := h.srv.codec.Unmarshal(message.Bytes(), &req); err != nil {
		return
	}

	res := h.srv.dispatch(socket, &req)

	data, err := h.srv.codec.Marshal(res)
	if err != nil {
		return
	}
	_ = socket.WriteMessage(gws.OpcodeBinary, data)
}

func (s *Server) dispatch(socket *gws.Conn, req *connection.RPCRequest) *connection.RPCResponse[any] {
	s.mu.Lock()
	delay := s.delays[req.Method]
	forced := s.errs[req.Method]
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if forced != nil {
		return errResponse(req, forced)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	principal := s.sessions[socket]

	switch connection.RPCFunction(req.Method) {
	case connection.Authenticate:
		token, _ := stringParam(req.Params, 0)
		p, ok := s.tokens[token]
		if !ok {
			return errResponse(req, &connection.RPCError{Code: 401, Message: "invalid delegation"})
		}
		s.sessions[socket] = p
		return okResponse(req, true)

	case connection.Invalidate:
		delete(s.sessions, socket)
		return okResponse(req, true)

	case connection.CreatePost:
		title, _ := stringParam(req.Params, 0)
		body, _ := stringParam(req.Params, 1)
		category, _ := stringParam(req.Params, 2)
		author := principal
		if len(req.Params) > 3 {
			author, _ = stringParam(req.Params, 3)
		}
		if author == "" {
			return errResponse(req, &connection.RPCError{Code: 403, Message: "anonymous callers cannot post"})
		}

		id := s.nextID
		s.nextID++
		s.posts = append(s.posts, models.Post{
			ID:        id,
			Title:     title,
			Body:      body,
			Author:    models.AuthorFromText(author),
			Timestamp: models.Timestamp(time.Now().UnixNano()),
			Category:  category,
		})
		return okResponse(req, id)

	case connection.UpdatePost:
		id, ok := uintParam(req.Params, 0)
		if !ok {
			return okResponse(req, false)
		}
		for i := range s.posts {
			if s.posts[i].ID != models.PostID(id) {
				continue
			}
			if principal == "" || s.posts[i].Author.Text() != principal {
				return okResponse(req, false)
			}
			s.posts[i].Title, _ = stringParam(req.Params, 1)
			s.posts[i].Body, _ = stringParam(req.Params, 2)
			s.posts[i].Category, _ = stringParam(req.Params, 3)
			return okResponse(req, true)
		}
		return okResponse(req, false)

	case connection.GetPosts:
		return okResponse(req, append([]models.Post(nil), s.posts...))

	case connection.GetPostsByCategory:
		category, _ := stringParam(req.Params, 0)
		out := []models.Post{}
		for _, p := range s.posts {
			if p.Category == category {
				out = append(out, p)
			}
		}
		return okResponse(req, out)

	case connection.GetOwnPosts:
		out := []models.Post{}
		for _, p := range s.posts {
			if principal != "" && p.Author.Text() == principal {
				out = append(out, p)
			}
		}
		return okResponse(req, out)

	case connection.GetPost:
		id, ok := uintParam(req.Params, 0)
		if ok {
			for _, p := range s.posts {
				if p.ID == models.PostID(id) {
					return okResponse(req, p)
				}
			}
		}
		return emptyResponse(req)

	case connection.GetCategories:
		return okResponse(req, append([]models.Category(nil), s.categories...))

	case connection.CreateUser:
		if !s.hasAccounts {
			return errResponse(req, &connection.RPCError{Code: 404, Message: "method not found"})
		}
		if principal == "" {
			return errResponse(req, &connection.RPCError{Code: 403, Message: "authentication required"})
		}
		name, _ := stringParam(req.Params, 0)
		if name == "" {
			return okResponse(req, false)
		}
		for p, existing := range s.usernames {
			if existing == name && p != principal {
				return okResponse(req, false)
			}
		}
		s.usernames[principal] = name
		return okResponse(req, true)

	case connection.GetUsername:
		if !s.hasAccounts {
			return errResponse(req, &connection.RPCError{Code: 404, Message: "method not found"})
		}
		if name, ok := s.usernames[principal]; ok {
			return okResponse(req, name)
		}
		return emptyResponse(req)

	default:
		return errResponse(req, &connection.RPCError{Code: 404, Message: "method not found"})
	}
}

func okResponse(req *connection.RPCRequest, result any) *connection.RPCResponse[any] {
	return &connection.RPCResponse[any]{ID: req.ID, Result: &result}
}

func emptyResponse(req *connection.RPCRequest) *connection.RPCResponse[any] {
	return &connection.RPCResponse[any]{ID: req.ID}
}

func errResponse(req *connection.RPCRequest, e *connection.RPCError) *connection.RPCResponse[any] {
	return &connection.RPCResponse[any]{ID: req.ID, Error: e}
}

func stringParam(params []any, i int) (string, bool) {
	if i >= len(params) {
		return "", false
	}
	s, ok := params[i].(string)
	return s, ok
}

func uintParam(params []any, i int) (uint64, bool) {
	if i >= len(params) {
		return 0, false
	}
	switch v := params[i].(type) {
	case uint64:
		return v, true
	case int64:
		if v >= 0 {
			return uint64(v), true
		}
	case int:
		if v >= 0 {
			return uint64(v), true
		}
	}
	return 0, false
}
