package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type claimsKey struct{}

// ContextWithClaims returns a copy of ctx carrying claims.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the caller's claims, if the auth interceptor ran.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*Claims)
	return claims, ok && claims != nil
}

// methodSet holds full gRPC method names exempt from a check.
type methodSet map[string]struct{}

func newMethodSet(methods []string) methodSet {
	set := make(methodSet, len(methods))
	for _, m := range methods {
		set[m] = struct{}{}
	}
	return set
}

func (s methodSet) has(method string) bool {
	_, ok := s[method]
	return ok
}

// bearerToken extracts the token from the "authorization" metadata entry.
func bearerToken(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing metadata")
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", status.Error(codes.Unauthenticated, "missing authorization header")
	}
	scheme, token, found := strings.Cut(values[0], " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", status.Error(codes.Unauthenticated, "authorization header must be a bearer token")
	}
	return token, nil
}

// UnaryAuthInterceptor validates the bearer token on every call outside
// publicMethods and stores the claims in the handler context.
func UnaryAuthInterceptor(jwtService *JWTService, publicMethods []string) grpc.UnaryServerInterceptor {
	public := newMethodSet(publicMethods)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if public.has(info.FullMethod) {
			return handler(ctx, req)
		}

		token, err := bearerToken(ctx)
		if err != nil {
			return nil, err
		}
		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
		}
		return handler(ContextWithClaims(ctx, claims), req)
	}
}

// RequireRole admits callers holding any of roles. It must run after
// UnaryAuthInterceptor.
func RequireRole(publicMethods []string, roles ...string) grpc.UnaryServerInterceptor {
	public := newMethodSet(publicMethods)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if public.has(info.FullMethod) {
			return handler(ctx, req)
		}

		claims, ok := ClaimsFromContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "no claims in context")
		}
		for _, role := range roles {
			if claims.HasRole(role) {
				return handler(ctx, req)
			}
		}
		return nil, status.Errorf(codes.PermissionDenied, "requires one of roles %v", roles)
	}
}
