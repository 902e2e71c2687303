package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/wms-platform/pick-ticket-service/internal/application"
	"github.com/wms-platform/pick-ticket-service/internal/domain"
	"github.com/wms-platform/pick-ticket-service/internal/infrastructure/tabular"
	"github.com/wms-platform/pick-ticket-service/internal/workflows"
	"github.com/wms-platform/pick-ticket-service/pkg/api"
	"github.com/wms-platform/pick-ticket-service/pkg/errors"
	"github.com/wms-platform/pick-ticket-service/pkg/idempotency"
	"github.com/wms-platform/pick-ticket-service/pkg/kafka"
	"github.com/wms-platform/pick-ticket-service/pkg/logging"
	"github.com/wms-platform/pick-ticket-service/pkg/middleware"
	"github.com/wms-platform/pick-ticket-service/pkg/mongodb"
	"github.com/wms-platform/pick-ticket-service/pkg/temporal"
)

const serviceName = "pick-ticket-service"

// Config holds application configuration
type Config struct {
	ServerAddr       string
	EngineConfigPath string
	MongoDB          *mongodb.Config
	Kafka            *kafka.Config
	Temporal         *temporal.Config
}

func loadConfig() *Config {
	mongoConfig := mongodb.DefaultConfig()
	mongoConfig.URI = getEnv("MONGODB_URI", mongoConfig.URI)
	mongoConfig.Database = getEnv("MONGODB_DATABASE", mongoConfig.Database)

	kafkaConfig := kafka.DefaultConfig()
	kafkaConfig.Brokers = strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")

	temporalConfig := temporal.DefaultConfig()
	temporalConfig.HostPort = getEnv("TEMPORAL_HOST", temporalConfig.HostPort)
	temporalConfig.Namespace = getEnv("TEMPORAL_NAMESPACE", temporalConfig.Namespace)
	temporalConfig.Identity = serviceName

	return &Config{
		ServerAddr:       getEnv("SERVER_ADDR", ":8080"),
		EngineConfigPath: getEnv("ENGINE_CONFIG", ""),
		MongoDB:          mongoConfig,
		Kafka:            kafkaConfig,
		Temporal:         temporalConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// WorkflowStarter starts Temporal workflows; *temporal.Client implements it
type WorkflowStarter interface {
	StartWorkflow(ctx context.Context, workflowID, taskQueue, workflowName string, args ...interface{}) (client.WorkflowRun, error)
}

// registerRoutes mounts the pick ticket API. idempotent guards the
// run-creating POSTs and may be nil.
func registerRoutes(router *gin.Engine, service *application.PickTicketService, starter WorkflowStarter, idempotent *idempotency.Config, logger *logging.Logger) {
	apiV1 := router.Group("/api/v1")

	var guard []gin.HandlerFunc
	if idempotent != nil {
		guard = append(guard, idempotency.Middleware(idempotent))
	}

	pickTickets := apiV1.Group("/pick-tickets")
	{
		pickTickets.POST("", append(guard, generatePickTicketHandler(service, logger))...)
		pickTickets.POST("/upload", append(guard, uploadPickTicketHandler(service, logger))...)
		pickTickets.POST("/async", append(guard, startPickTicketWorkflowHandler(starter, logger))...)
		pickTickets.GET("", listPickTicketsHandler(service, logger))
		pickTickets.GET("/:runId", getPickTicketHandler(service, logger))
		pickTickets.GET("/:runId/export", exportPickTicketHandler(service, logger))
	}

	apiV1.GET("/config", getConfigHandler(service))
}

type orderLineRequest struct {
	IssueNo         string  `json:"issueNo" binding:"required,not_blank"`
	SKU             string  `json:"sku" binding:"required,not_blank"`
	SKUDescription  string  `json:"skuDescription"`
	PickingQty      float64 `json:"pickingQty" binding:"gte=0"`
	ShipTo          string  `json:"shipTo"`
	DeliveryDate    string  `json:"deliveryDate"`
	Zone            string  `json:"zone"`
	Location        string  `json:"location"`
	LocationType    string  `json:"locationType"`
	StorageLocation string  `json:"storageLocation"`
}

type skuAttributesRequest struct {
	SKUCode             string   `json:"skuCode" binding:"required,not_blank"`
	ItemVolume          *float64 `json:"itemVolume" binding:"omitempty,gte=0"`
	QtyPerCarton        *float64 `json:"qtyPerCarton" binding:"omitempty,gte=0"`
	QtyPerCommercialBox *float64 `json:"qtyPerCommercialBox" binding:"omitempty,gte=0"`
}

type runOptionsRequest struct {
	DeliveryFrom string `json:"deliveryFrom" binding:"omitempty,date_key"`
	DeliveryTo   string `json:"deliveryTo" binding:"omitempty,date_key"`
	OrderKind    string `json:"orderKind" binding:"omitempty,order_kind"`
}

// generatePickTicketRequest is the body of the synchronous and async
// generate endpoints. Export only applies to async runs.
type generatePickTicketRequest struct {
	Lines     []orderLineRequest     `json:"lines" binding:"required,dive"`
	SKUMaster []skuAttributesRequest `json:"skuMaster" binding:"required,dive"`
	Options   runOptionsRequest      `json:"options"`
	Strategy  string                 `json:"strategy" binding:"omitempty,batch_strategy"`
	Export    bool                   `json:"export"`
}

// uploadForm carries the non-file fields of a multipart upload
type uploadForm struct {
	DeliveryFrom string `form:"deliveryFrom" binding:"omitempty,date_key"`
	DeliveryTo   string `form:"deliveryTo" binding:"omitempty,date_key"`
	OrderKind    string `form:"orderKind" binding:"omitempty,order_kind"`
	Strategy     string `form:"strategy" binding:"omitempty,batch_strategy"`
}

func (r orderLineRequest) toDomain(seq int) domain.OrderLine {
	return domain.OrderLine{
		Seq:             seq,
		IssueNo:         strings.TrimSpace(r.IssueNo),
		SKU:             strings.TrimSpace(r.SKU),
		SKUDescription:  r.SKUDescription,
		PickingQty:      r.PickingQty,
		ShipTo:          strings.TrimSpace(r.ShipTo),
		DeliveryDate:    tabular.ParseDate(r.DeliveryDate),
		Zone:            r.Zone,
		Location:        r.Location,
		LocationType:    r.LocationType,
		StorageLocation: r.StorageLocation,
	}
}

func (r runOptionsRequest) toDomain() (domain.RunOptions, *errors.AppError) {
	var opts domain.RunOptions

	kind, err := domain.ParseOrderKind(r.OrderKind)
	if err != nil {
		return opts, errors.ErrValidationWithFields("validation failed", map[string]string{
			"options.orderKind": "must be one of: all, single, multi",
		})
	}
	opts.OrderKind = kind

	if r.DeliveryFrom != "" {
		from, _ := time.Parse(domain.DateLayout, r.DeliveryFrom)
		opts.DeliveryFrom = &from
	}
	if r.DeliveryTo != "" {
		to, _ := time.Parse(domain.DateLayout, r.DeliveryTo)
		opts.DeliveryTo = &to
	}
	if opts.DeliveryFrom != nil && opts.DeliveryTo != nil && opts.DeliveryFrom.After(*opts.DeliveryTo) {
		return opts, errors.ErrValidationWithFields("validation failed", map[string]string{
			"options.deliveryFrom": "must not be after deliveryTo",
		})
	}
	return opts, nil
}

func (r generatePickTicketRequest) toCommand(correlationID string) (application.GeneratePickTicketCommand, *errors.AppError) {
	opts, appErr := r.Options.toDomain()
	if appErr != nil {
		return application.GeneratePickTicketCommand{}, appErr
	}

	lines := make([]domain.OrderLine, 0, len(r.Lines))
	for i, l := range r.Lines {
		lines = append(lines, l.toDomain(i+1))
	}

	entries := make([]domain.SKUAttributes, 0, len(r.SKUMaster))
	for _, s := range r.SKUMaster {
		entries = append(entries, domain.SKUAttributes{
			SKUCode:             s.SKUCode,
			ItemVolume:          s.ItemVolume,
			QtyPerCarton:        s.QtyPerCarton,
			QtyPerCommercialBox: s.QtyPerCommercialBox,
		})
	}

	return application.GeneratePickTicketCommand{
		Lines:         lines,
		Master:        domain.NewSKUMaster(entries),
		Options:       opts,
		Strategy:      r.Strategy,
		CorrelationID: correlationID,
	}, nil
}

func generatePickTicketHandler(service *application.PickTicketService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var req generatePickTicketRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd, appErr := req.toCommand(middleware.GetCorrelationID(c))
		if appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}
		cmd.Source = domain.RunSourceAPI

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"pick_ticket.input_lines": len(cmd.Lines),
			"pick_ticket.skus":        len(cmd.Master),
		})

		run, err := service.GeneratePickTicket(c.Request.Context(), cmd)
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, run)
	}
}

func uploadPickTicketHandler(service *application.PickTicketService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		var form uploadForm
		if appErr := middleware.BindFormAndValidate(c, &form); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}
		opts, appErr := runOptionsRequest{
			DeliveryFrom: form.DeliveryFrom,
			DeliveryTo:   form.DeliveryTo,
			OrderKind:    form.OrderKind,
		}.toDomain()
		if appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		var lines []domain.OrderLine
		if appErr := readUpload(c, "orderLines", func(r io.Reader) (err error) {
			lines, err = tabular.ReadOrderLines(r)
			return err
		}); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		var master domain.SKUMaster
		if appErr := readUpload(c, "skuMaster", func(r io.Reader) (err error) {
			master, err = tabular.ReadSKUMaster(r)
			return err
		}); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"pick_ticket.input_lines": len(lines),
			"pick_ticket.skus":        len(master),
		})

		run, err := service.GeneratePickTicket(c.Request.Context(), application.GeneratePickTicketCommand{
			Source:        domain.RunSourceUpload,
			Lines:         lines,
			Master:        master,
			Options:       opts,
			Strategy:      form.Strategy,
			CorrelationID: middleware.GetCorrelationID(c),
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusCreated, run)
	}
}

// readUpload opens the multipart file field and hands it to parse. Missing
// columns are validation errors; any other parse failure is a bad request.
func readUpload(c *gin.Context, field string, parse func(io.Reader) error) *errors.AppError {
	header, err := c.FormFile(field)
	if err != nil {
		return errors.ErrValidationWithFields("validation failed", map[string]string{field: "is required"})
	}

	var file multipart.File
	if file, err = header.Open(); err != nil {
		return errors.ErrBadRequest(fmt.Sprintf("cannot open %s: %v", field, err))
	}
	defer file.Close()

	if err := parse(file); err != nil {
		if stderrors.Is(err, tabular.ErrMissingColumn) {
			return errors.ErrValidationWithFields("validation failed", map[string]string{field: err.Error()})
		}
		return errors.ErrBadRequest(fmt.Sprintf("cannot read %s: %v", field, err))
	}
	return nil
}

func startPickTicketWorkflowHandler(starter WorkflowStarter, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		if starter == nil {
			responder.RespondServiceUnavailable("workflow engine")
			return
		}

		var req generatePickTicketRequest
		if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		cmd, appErr := req.toCommand(middleware.GetCorrelationID(c))
		if appErr != nil {
			responder.RespondWithAppError(appErr)
			return
		}

		runID := domain.NewRunID(uuid.New().String())
		workflowID := "pick-ticket-" + runID

		middleware.AddSpanAttributes(c, map[string]interface{}{
			"pick_ticket.run_id":      runID,
			"pick_ticket.input_lines": len(cmd.Lines),
		})

		run, err := starter.StartWorkflow(c.Request.Context(), workflowID,
			temporal.TaskQueues.PickTicket, temporal.WorkflowNames.PickTicket,
			workflows.PickTicketWorkflowInput{
				RunID:         runID,
				Lines:         cmd.Lines,
				SKUMaster:     cmd.Master.Entries(),
				Options:       cmd.Options,
				Strategy:      cmd.Strategy,
				CorrelationID: cmd.CorrelationID,
				Export:        req.Export,
			})
		if err != nil {
			logger.WithContext(c.Request.Context()).WithError(err).Error("Failed to start pick ticket workflow", "runId", runID)
			responder.RespondServiceUnavailable("workflow engine")
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"runId":      runID,
			"workflowId": run.GetID(),
			"status":     "accepted",
		})
	}
}

func listPickTicketsHandler(service *application.PickTicketService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		page, err := service.ListPickTickets(c.Request.Context(), application.ListPickTicketsQuery{
			Page: api.ParsePagination(c),
		})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, page)
	}
}

func getPickTicketHandler(service *application.PickTicketService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		runID := c.Param("runId")
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"pick_ticket.run_id": runID,
		})

		run, err := service.GetPickTicket(c.Request.Context(), application.GetPickTicketQuery{RunID: runID})
		if err != nil {
			responder.RespondWithError(err)
			return
		}

		c.JSON(http.StatusOK, run)
	}
}

func exportPickTicketHandler(service *application.PickTicketService, logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		responder := middleware.NewErrorResponder(c, logger.Logger)

		query := application.ExportPickTicketQuery{
			RunID: c.Param("runId"),
			Table: c.DefaultQuery("table", tabular.TablePrimary),
		}
		middleware.AddSpanAttributes(c, map[string]interface{}{
			"pick_ticket.run_id": query.RunID,
			"pick_ticket.table":  query.Table,
		})

		// Buffer so a failed export can still be answered with a JSON error
		var buf strings.Builder
		if err := service.ExportPickTicket(c.Request.Context(), query, &buf); err != nil {
			responder.RespondWithError(err)
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s.csv"`, query.RunID, query.Table))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", []byte(buf.String()))
	}
}

func getConfigHandler(service *application.PickTicketService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, service.Config())
	}
}
