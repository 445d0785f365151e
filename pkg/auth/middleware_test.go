package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const testMethod = "/lending.v1.LendingService/GetLoan"

func okHandler(ctx context.Context, _ interface{}) (interface{}, error) {
	claims, _ := ClaimsFromContext(ctx)
	return claims, nil
}

func TestUnaryAuthInterceptor(t *testing.T) {
	svc := newTestJWTService(t)
	interceptor := UnaryAuthInterceptor(svc, []string{"/grpc.health.v1.Health/Check"})
	customerID := uuid.New()
	token, err := svc.GenerateToken(customerID, []string{RoleCustomer})
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	t.Run("valid bearer token attaches claims", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
		resp, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: testMethod}, okHandler)
		if err != nil {
			t.Fatalf("interceptor error = %v", err)
		}
		claims, ok := resp.(*Claims)
		if !ok || claims == nil || claims.CustomerID != customerID {
			t.Errorf("claims = %v, want customer %v", resp, customerID)
		}
	})

	t.Run("missing metadata", func(t *testing.T) {
		_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: testMethod}, okHandler)
		if status.Code(err) != codes.Unauthenticated {
			t.Errorf("code = %v, want Unauthenticated", status.Code(err))
		}
	})

	t.Run("missing header", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs())
		_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: testMethod}, okHandler)
		if status.Code(err) != codes.Unauthenticated {
			t.Errorf("code = %v, want Unauthenticated", status.Code(err))
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer nope"))
		_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: testMethod}, okHandler)
		if status.Code(err) != codes.Unauthenticated {
			t.Errorf("code = %v, want Unauthenticated", status.Code(err))
		}
	})

	t.Run("skipped method needs no token", func(t *testing.T) {
		_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, okHandler)
		if err != nil {
			t.Errorf("interceptor error = %v, want nil", err)
		}
	})
}

func TestRequireRole(t *testing.T) {
	interceptor := RequireRole(nil, RoleAdmin, RoleCustomer)
	info := &grpc.UnaryServerInfo{FullMethod: testMethod}

	_, err := interceptor(context.Background(), nil, info, okHandler)
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("no claims: code = %v, want Unauthenticated", status.Code(err))
	}

	ctx := ContextWithClaims(context.Background(), &Claims{Roles: []string{"auditor"}})
	_, err = interceptor(ctx, nil, info, okHandler)
	if status.Code(err) != codes.PermissionDenied {
		t.Errorf("wrong role: code = %v, want PermissionDenied", status.Code(err))
	}

	ctx = ContextWithClaims(context.Background(), &Claims{
		Roles: []string{RoleCustomer},
	})
	if _, err := interceptor(ctx, nil, info, okHandler); err != nil {
		t.Errorf("customer role: error = %v, want nil", err)
	}
}

func TestRequireRoleSkip(t *testing.T) {
	interceptor := RequireRole([]string{testMethod}, RoleAdmin)
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: testMethod}, okHandler)
	if err != nil {
		t.Errorf("skipped method: error = %v, want nil", err)
	}
}

func TestUnaryAuthInterceptorRejectsOtherSchemes(t *testing.T) {
	interceptor := UnaryAuthInterceptor(newTestJWTService(t), nil)

	for _, header := range []string{"Basic dXNlcjpwYXNz", "Bearer", "token-without-scheme"} {
		ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", header))
		_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{FullMethod: testMethod}, okHandler)
		if status.Code(err) != codes.Unauthenticated {
			t.Errorf("header %q: code = %v, want Unauthenticated", header, status.Code(err))
		}
	}
}
