package blockpress

// Deployment identifies the network target. It controls whether root-trust
// material is fetched before the first remote call and which capability
// defaults apply.
type Deployment int

const (
	// Production is the public network. Root-trust material is baked in and
	// never fetched.
	Production Deployment = iota
	// Local is a local or test network. Root-trust material must be fetched
	// once before the first remote call.
	Local
)

func (d Deployment) String() string {
	switch d {
	case Production:
		return "production"
	case Local:
		return "local"
	default:
		return "unknown"
	}
}

// Capabilities describes which optional procedures and fields the connected
// deployment has. The service's schema drifted across revisions; rather than
// hard-coding one shape, the handle adapts to the capability set, which is
// deployment configuration, not something to detect heuristically.
type Capabilities struct {
	// HasAccounts is true when the deployment has the createUser and
	// getUsername procedures.
	HasAccounts bool
	// CreatePostReturnsOption is true when createPost returns an
	// option-wrapped id instead of a required one.
	CreatePostReturnsOption bool
	// RequiresAuthorArg is true when createPost takes an explicit author
	// argument instead of deriving it from the caller's identity.
	RequiresAuthorArg bool
}

// DefaultCapabilities returns the capability set of the revision typically
// running on the given deployment. Overrides come from configuration.
func DefaultCapabilities(d Deployment) Capabilities {
	if d == Local {
		return Capabilities{
			HasAccounts:             true,
			CreatePostReturnsOption: true,
		}
	}
	return Capabilities{}
}
