package groupkit

import (
	"net/http"
)

// Middleware provides HTTP middleware glue for membership authorization.
// It does not route anything; it extracts the acting principal and audit
// metadata from the request and guards handlers with the view/mutate rules.
type Middleware struct {
	service      *Service
	getPrincipal func(*http.Request) Principal
	errorHandler func(http.ResponseWriter, *http.Request, error)
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := groupkit.NewMiddleware(service,
//	    groupkit.WithPrincipalExtractor(func(r *http.Request) groupkit.Principal {
//	        return principalFromToken(r)
//	    }),
//	)
func NewMiddleware(service *Service, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		service:      service,
		getPrincipal: defaultGetPrincipal,
		errorHandler: defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithPrincipalExtractor sets a custom function to extract the principal from a request.
func WithPrincipalExtractor(fn func(*http.Request) Principal) MiddlewareOption {
	return func(m *Middleware) {
		m.getPrincipal = fn
	}
}

// WithErrorHandler sets a custom error handler for middleware.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

func defaultGetPrincipal(r *http.Request) Principal {
	return PrincipalFromContext(r.Context())
}

// defaultErrorHandler maps the GroupKit error taxonomy to HTTP status codes.
func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case IsForbidden(err):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case IsNotFound(err):
		http.Error(w, "Not Found", http.StatusNotFound)
	case IsBadRequest(err):
		http.Error(w, "Bad Request", http.StatusBadRequest)
	case IsConflict(err):
		http.Error(w, "Conflict", http.StatusConflict)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// GroupExtractor extracts the target group id from an HTTP request.
type GroupExtractor func(*http.Request) (string, error)

// GroupFromParam creates a GroupExtractor that reads the group id from URL parameters.
// Compatible with chi, gorilla/mux, and standard library patterns.
//
// Example:
//
//	// For route /groups/{groupID}/members
//	mw.RequireGroupView(groupkit.GroupFromParam("groupID"))
func GroupFromParam(paramName string) GroupExtractor {
	return func(r *http.Request) (string, error) {
		groupID := r.PathValue(paramName)
		if groupID == "" {
			// Try context (set by router middleware)
			if v := r.Context().Value(paramName); v != nil {
				if s, ok := v.(string); ok {
					groupID = s
				}
			}
		}
		if groupID == "" {
			return "", NewError(ErrBadRequest, "group id not found in request")
		}
		return groupID, nil
	}
}

// GroupFromQuery creates a GroupExtractor that reads the group id from query parameters.
//
// Example:
//
//	// For route /api/members?group_id=g_123
//	mw.RequireGroupView(groupkit.GroupFromQuery("group_id"))
func GroupFromQuery(queryParam string) GroupExtractor {
	return func(r *http.Request) (string, error) {
		groupID := r.URL.Query().Get(queryParam)
		if groupID == "" {
			return "", NewError(ErrBadRequest, "group id not found in query")
		}
		return groupID, nil
	}
}

// GroupFromHeader creates a GroupExtractor that reads the group id from a header.
//
// Example:
//
//	// For header X-Group-ID: g_123
//	mw.RequireGroupView(groupkit.GroupFromHeader("X-Group-ID"))
func GroupFromHeader(headerName string) GroupExtractor {
	return func(r *http.Request) (string, error) {
		groupID := r.Header.Get(headerName)
		if groupID == "" {
			return "", NewError(ErrBadRequest, "group id not found in header")
		}
		return groupID, nil
	}
}

// RequireAdmin creates middleware that only lets elevated principals through.
//
// Example:
//
//	router.With(mw.RequireAdmin()).Post("/groups/{groupID}/members", addMemberHandler)
func (m *Middleware) RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := m.getPrincipal(r)
			if !p.Elevated() {
				m.errorHandler(w, r, NewError(ErrForbidden, "admin role required").WithActor(p.UserID))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireGroupView creates middleware that enforces the membership-visibility
// rules for the extracted group before the handler runs.
//
// Example:
//
//	router.With(mw.RequireGroupView(groupkit.GroupFromParam("groupID"))).
//	    Get("/groups/{groupID}/members", listMembersHandler)
func (m *Middleware) RequireGroupView(extractor GroupExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			p := m.getPrincipal(r)

			groupID, err := extractor(r)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			group, err := m.service.findGroupByID(ctx, m.service.db, groupID, p.Elevated())
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			if err := m.service.Authorizer().authorizeView(ctx, m.service.db, p, group); err != nil {
				m.errorHandler(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// InjectAuditContext creates middleware that extracts audit information from
// the request and adds it to the context for use in membership mutations.
//
// Example:
//
//	router.Use(mw.InjectAuditContext())
func (m *Middleware) InjectAuditContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Extract IP address
			ip := r.Header.Get("X-Forwarded-For")
			if ip == "" {
				ip = r.Header.Get("X-Real-IP")
			}
			if ip == "" {
				ip = r.RemoteAddr
			}
			ctx = WithIPAddress(ctx, ip)

			// Extract User Agent
			ctx = WithUserAgent(ctx, r.UserAgent())

			// Extract Request ID (commonly set by other middleware)
			requestID := r.Header.Get("X-Request-ID")
			if requestID != "" {
				ctx = WithRequestID(ctx, requestID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
