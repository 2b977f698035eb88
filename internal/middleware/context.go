// AngelaMos | 2026
// context.go

package middleware

// contextKey keeps middleware context values collision-free across packages.
type contextKey string
