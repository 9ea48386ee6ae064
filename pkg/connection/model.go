package connection

// RPCError represents an error reported by the service for a single call.
// The transport succeeded; the call itself was refused or failed remotely.
type RPCError struct {
	Code    int    `cbor:"code" json:"code"`
	Message string `cbor:"message,omitempty" json:"message,omitempty"`
}

func (r RPCError) Error() string {
	return r.Message
}

func (r *RPCError) Is(target error) bool {
	if target == nil {
		return r == nil
	}

	_, ok := target.(*RPCError)
	return ok
}

// RPCRequest represents an outgoing RPC request.
type RPCRequest struct {
	ID     any    `cbor:"id" json:"id"`
	Method string `cbor:"method,omitempty" json:"method,omitempty"`
	Params []any  `cbor:"params,omitempty" json:"params,omitempty"`
}

// RPCResponse represents an incoming RPC response.
type RPCResponse[T any] struct {
	ID     any       `cbor:"id" json:"id"`
	Error  *RPCError `cbor:"error,omitempty" json:"error,omitempty"`
	Result *T        `cbor:"result,omitempty" json:"result,omitempty"`
}

type RPCFunction string

// Procedures of the BlockPress service. Authenticate and Invalidate bind and
// release the connection's identity; the rest are the content surface.
// CreateUser and GetUsername only exist on deployments with accounts.
var (
	Authenticate       RPCFunction = "authenticate"
	Invalidate         RPCFunction = "invalidate"
	CreatePost         RPCFunction = "createPost"
	UpdatePost         RPCFunction = "updatePost"
	GetPosts           RPCFunction = "getPosts"
	GetPostsByCategory RPCFunction = "getPostsByCategory"
	GetOwnPosts        RPCFunction = "getOwnPosts"
	GetPost            RPCFunction = "getPost"
	GetCategories      RPCFunction = "getCategories"
	CreateUser         RPCFunction = "createUser"
	GetUsername        RPCFunction = "getUsername"
)
