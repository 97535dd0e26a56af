package validation

import (
	"context"

	"github.com/deppfellow/schemaguard/internal/schema"
)

// Handler is the calling convention shared by the downstream handler and
// the wrapped handler. Res is whatever the host runtime uses as the
// response side (echo.Context, http.ResponseWriter...).
type Handler[Res any] func(ctx context.Context, req Request, res Res) error

// Replier is the reply collaborator used by Reply mode: it delivers err to
// the client. Whatever it returns becomes the result of the invocation.
type Replier[Res any] func(ctx context.Context, req Request, res Res, err error) error

// Wrapper holds one compiled schema and one Config. It is safe for
// concurrent use; a single Wrapper usually lives for the whole process.
//
// Why generic over Res?
//   - The wrapper never touches the response, it only hands it on to the
//     handler or to the reply function.
//   - Keeping Res a type parameter lets the same decision logic run in front
//     of an Echo handler (Res = echo.Context), a plain net/http handler
//     (Res = http.ResponseWriter) or a CLI (Res = io.Writer) without
//     interface{} casts on either side.
//
// Nothing in a Wrapper changes after New returns: the compiled validator,
// the split target and the config are read-only, and every call to Validate
// returns its own Result. That is what makes sharing one Wrapper between
// goroutines safe.
type Wrapper[Res any] struct {
	cfg       Config
	segments  []string
	validator *schema.Validator
	reply     Replier[Res]
}

// New compiles doc and returns a Wrapper.
//
// Steps:
//  1. fill cfg's empty fields with the defaults
//  2. reject bad configuration (*ConfigurationError), including Reply mode
//     without a reply function
//  3. compile the schema (*SchemaCompilationError on failure)
//
// reply may be nil when ErrorMode is Throw or Inject.
func New[Res any](doc any, reply Replier[Res], cfg Config) (*Wrapper[Res], error) {
	cfg = cfg.withDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.ErrorMode == Reply && reply == nil {
		return nil, &ConfigurationError{Field: "reply"}
	}

	v, err := schema.Compile(doc, cfg.Engine)
	if err != nil {
		return nil, &SchemaCompilationError{Err: err}
	}

	return &Wrapper[Res]{
		cfg:       cfg,
		segments:  splitTarget(cfg.Target),
		validator: v,
		reply:     reply,
	}, nil
}

// Config returns the effective configuration (defaults applied).
func (w *Wrapper[Res]) Config() Config {
	return w.cfg
}

// Check extracts the target from req and validates it, without dispatching.
//
// An absent target is validated as JSON null. This is looser than a
// validator that knows "undefined": a schema such as {"type": "null"} (or
// one that accepts null in a oneOf) lets a missing target through, while a
// missing value would be rejected there. Schemas that must catch absence
// should say so with "required" one level up.
//
// Named request maps (Request) and header-style map[string]string values
// are accepted as objects; see engineValue.
func (w *Wrapper[Res]) Check(req Request) schema.Result {
	value, _ := lookup(req, w.segments)
	return w.validator.Validate(engineValue(value))
}

// Wrap decorates next. It does no work itself and never modifies next.
//
// Per invocation:
//  1. read the target out of req (lenient, see Lookup)
//  2. validate it, applying defaults in place when UseDefaults is set
//  3. valid: call next with the same req and res
//  4. invalid: act on ErrorMode
//     - Reply:  reply(ctx, req, res, CreateError(failures)); its result is
//     returned as-is, so a successful reply is a nil error
//     - Throw:  return CreateError(failures); next is not called
//     - Inject: store failures under InjectKey and call next anyway
//
// IMPORTANT: Inject mode adds a key to the caller's Request map unless
// CopyOnInject is set. Code that keeps a reference to req after the call
// (a logger, a test) will see the injected failures too.
func (w *Wrapper[Res]) Wrap(next Handler[Res]) Handler[Res] {
	return func(ctx context.Context, req Request, res Res) error {
		result := w.Check(req)
		if result.Valid {
			return next(ctx, req, res)
		}

		switch w.cfg.ErrorMode {
		case Reply:
			return w.reply(ctx, req, res, w.cfg.CreateError(result.Failures))

		case Throw:
			return w.cfg.CreateError(result.Failures)

		case Inject:
			// A nil map cannot take the key; start from an empty request.
			if req == nil {
				req = Request{}
			} else if w.cfg.CopyOnInject {
				req = req.Clone()
			}
			req[w.cfg.InjectKey] = result.Failures
			return next(ctx, req, res)

		default:
			// Unreachable through New, which rejects unknown modes.
			return &ConfigurationError{Field: "errorMode", Value: string(w.cfg.ErrorMode)}
		}
	}
}
