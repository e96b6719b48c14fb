package server

import (
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
)

// Routes are the /api groups handed to HTTP registrars.
// Protected routes run behind the session token middleware.
type Routes struct {
	Public    *gin.RouterGroup
	Protected *gin.RouterGroup
}

// Registrar is a common interface for all HTTP service registrars
type Registrar interface {
	Register(routes *Routes)
}

// GRPCRegistrar attaches a service to the gRPC server
type GRPCRegistrar interface {
	RegisterGRPC(s *grpc.Server)
}
