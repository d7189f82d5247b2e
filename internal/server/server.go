package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/shaghafhq/shaghaf/internal/branch"
	branchdomain "github.com/shaghafhq/shaghaf/internal/branch/domain"
	"github.com/shaghafhq/shaghaf/internal/client"
	clientdomain "github.com/shaghafhq/shaghaf/internal/client/domain"
	"github.com/shaghafhq/shaghaf/internal/clock"
	"github.com/shaghafhq/shaghaf/internal/config"
	"github.com/shaghafhq/shaghaf/internal/employee"
	employeedomain "github.com/shaghafhq/shaghaf/internal/employee/domain"
	"github.com/shaghafhq/shaghaf/internal/invoice"
	invoicedomain "github.com/shaghafhq/shaghaf/internal/invoice/domain"
	"github.com/shaghafhq/shaghaf/internal/lock"
	"github.com/shaghafhq/shaghaf/internal/observability"
	obscontext "github.com/shaghafhq/shaghaf/internal/observability/context"
	obsmiddleware "github.com/shaghafhq/shaghaf/internal/observability/logger"
	obsmetrics "github.com/shaghafhq/shaghaf/internal/observability/metrics"
	obstracing "github.com/shaghafhq/shaghaf/internal/observability/tracing"
	"github.com/shaghafhq/shaghaf/internal/pricing"
	"github.com/shaghafhq/shaghaf/internal/product"
	productdomain "github.com/shaghafhq/shaghaf/internal/product/domain"
	"github.com/shaghafhq/shaghaf/internal/providers/pdf"
	"github.com/shaghafhq/shaghaf/internal/room"
	roomdomain "github.com/shaghafhq/shaghaf/internal/room/domain"
	"github.com/shaghafhq/shaghaf/internal/session"
	sessiondomain "github.com/shaghafhq/shaghaf/internal/session/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	clock.Module,
	lock.Module,
	pricing.Module,
	pdf.Module,
	branch.Module,
	employee.Module,
	client.Module,
	product.Module,
	room.Module,
	session.Module,
	invoice.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	genID       *snowflake.Node
	branchSvc   branchdomain.Service
	employeeSvc employeedomain.Service
	clientSvc   clientdomain.Service
	productSvc  productdomain.Service
	roomSvc     roomdomain.Service
	sessionSvc  sessiondomain.Service
	invoiceSvc  invoicedomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	GenID       *snowflake.Node
	BranchSvc   branchdomain.Service
	EmployeeSvc employeedomain.Service
	ClientSvc   clientdomain.Service
	ProductSvc  productdomain.Service
	RoomSvc     roomdomain.Service
	SessionSvc  sessiondomain.Service
	InvoiceSvc  invoicedomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		genID:       p.GenID,
		branchSvc:   p.BranchSvc,
		employeeSvc: p.EmployeeSvc,
		clientSvc:   p.ClientSvc,
		productSvc:  p.ProductSvc,
		roomSvc:     p.RoomSvc,
		sessionSvc:  p.SessionSvc,
		invoiceSvc:  p.InvoiceSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/branches", s.CreateBranch)
	api.GET("/branches", s.ListBranches)
	api.GET("/branches/:id", s.GetBranchByID)

	scoped := api.Group("", s.BranchRequired())
	{
		scoped.POST("/employees", s.CreateEmployee)
		scoped.GET("/employees", s.ListEmployees)
		scoped.GET("/employees/:id", s.GetEmployeeByID)
		scoped.PATCH("/employees/:id", s.UpdateEmployee)

		scoped.POST("/clients", s.CreateClient)
		scoped.GET("/clients", s.ListClients)
		scoped.GET("/clients/:id", s.GetClientByID)

		scoped.POST("/products", s.CreateProduct)
		scoped.GET("/products", s.ListProducts)
		scoped.GET("/products/:id", s.GetProductByID)
		scoped.PATCH("/products/:id", s.UpdateProduct)

		scoped.POST("/rooms", s.CreateRoom)
		scoped.GET("/rooms", s.ListRooms)
		scoped.POST("/bookings", s.CreateBooking)
		scoped.GET("/bookings", s.ListBookings)
		scoped.POST("/bookings/:id/cancel", s.CancelBooking)

		scoped.POST("/sessions", s.StartSession)
		scoped.GET("/sessions", s.ListActiveSessions)
		scoped.GET("/sessions/:id", s.GetSessionByID)
		scoped.POST("/sessions/:id/individuals", s.AddIndividuals)
		scoped.POST("/sessions/:id/items", s.AddSessionItem)
		scoped.PATCH("/sessions/:id/items/:itemId", s.UpdateSessionItem)
		scoped.DELETE("/sessions/:id/items/:itemId", s.RemoveSessionItem)
		scoped.POST("/sessions/:id/partial-exit", s.PartialExit)
		scoped.POST("/sessions/:id/complete", s.CompleteSession)

		scoped.GET("/invoices", s.ListInvoices)
		scoped.GET("/invoices/:id", s.GetInvoiceByID)
		scoped.POST("/invoices/:id/payments", s.ApplyPayment)
		scoped.GET("/invoices/:id/receipt", s.InvoiceReceipt)
	}
}

// BranchRequired resolves the branch scope from the X-Branch-ID header or
// branch_id query, falling back to the configured default branch.
func (s *Server) BranchRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader("X-Branch-ID"))
		if raw == "" {
			raw = strings.TrimSpace(c.Query("branch_id"))
		}
		if raw == "" && s.cfg.DefaultBranchID != 0 {
			raw = strconv.FormatInt(s.cfg.DefaultBranchID, 10)
		}
		if raw == "" {
			AbortWithError(c, newValidationError("branch_id", "invalid_branch", "branch is required"))
			return
		}
		if _, err := snowflake.ParseString(raw); err != nil {
			AbortWithError(c, newValidationError("branch_id", "invalid_branch", "invalid branch id"))
			return
		}

		c.Set(branchIDKey, raw)
		ctx := obscontext.WithBranchID(c.Request.Context(), raw)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

const branchIDKey = "branch_id"

func branchID(c *gin.Context) string {
	return c.GetString(branchIDKey)
}
