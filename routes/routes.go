package routes

import (
	"bandar/callback"
	"bandar/config"
	"bandar/controllers/admin"
	"bandar/controllers/agent"
	callbackctl "bandar/controllers/callback"
	"bandar/controllers/round"
	"bandar/controllers/table"
	"bandar/controllers/user"
	"bandar/helpers"
	"bandar/middlewares"
	"bandar/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type Deps struct {
	Config     config.Config
	DB         *gorm.DB
	Settler    *services.Settler
	Receiver   *services.Receiver
	Tables     *services.Tables
	Dispatcher *callback.Dispatcher
}

func Setup(app *fiber.App, d Deps) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/healthz", health(d.DB))

	credentials := middlewares.AgentCredentials(d.DB)
	master := middlewares.AgentAuth(d.Config.MasterAgentCode, d.Config.MasterAgentSecret)

	users := &user.Handler{DB: d.DB}
	userroutes := app.Group("/user", credentials)
	userroutes.Post("/balance", users.CheckUserBalance)
	userroutes.Post("/register", users.RegisterUser)

	agents := &agent.Handler{DB: d.DB, DefaultCallbackURL: d.Config.CallbackDefaultURL}
	app.Post("/agent/info", credentials, agents.AgentInfo)

	rounds := &round.Handler{Settler: d.Settler}
	app.Post("/round/settle", credentials, rounds.Settle)

	tables := &table.Handler{Tables: d.Tables}
	tableroutes := app.Group("/table", master)
	tableroutes.Post("/banker", tables.RotateBanker)
	tableroutes.Post("/state", tables.State)

	deliveries := &admin.Handler{Dispatcher: d.Dispatcher}
	adminroutes := app.Group("/admin/callbacks", master)
	adminroutes.Post("/failed", deliveries.FailedDeliveries)
	adminroutes.Post("/redeliver", deliveries.Redeliver)

	// client site
	if d.Config.CallbackReceiverEnabled {
		receiver := &callbackctl.Handler{Receiver: d.Receiver}
		app.Post("/callback/settlement",
			middlewares.CallbackSignature(d.Config.CallbackVerifySignature, d.Config.CallbackReceiverSecret),
			receiver.Settlement,
		)
	}
}

func health(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return helpers.JSONError(c, fiber.StatusServiceUnavailable, helpers.CodeInternalError, "database unreachable")
		}
		return helpers.JSONSuccess(c, helpers.CodeSuccess, "ok", nil)
	}
}
