package ermc

import (
	"context"
	"net/http"

	log "github.com/cihub/seelog"
	"github.com/gin-gonic/gin"
	"github.com/minor-industries/ermc/internal/subscription"
	"github.com/minor-industries/ermc/messages"
	"github.com/minor-industries/ermc/schema"
	"github.com/minor-industries/ermc/session"
	"github.com/minor-industries/ermc/storage"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

type calculateRequest struct {
	Length              string `json:"length"`
	SmallerRadiusLength string `json:"smallerRadiusLength"`
}

type calculateResponse struct {
	Status      string   `json:"status"`
	X           *float64 `json:"x,omitempty"`
	Resistivity *float64 `json:"resistivity,omitempty"`
	Error       string   `json:"error,omitempty"`
}

var statusCodes = map[session.Status]int{
	session.StatusOK:                     http.StatusOK,
	session.StatusInvalidInput:           http.StatusBadRequest,
	session.StatusMeasurementUnavailable: http.StatusConflict,
	session.StatusNonFinite:              http.StatusUnprocessableEntity,
}

func (a *App) setupServer() error {
	r := a.server

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})

	api := r.Group("/api")

	api.POST("/fetch", func(c *gin.Context) {
		m, err := a.session.Fetch(c.Request.Context())
		if err != nil {
			log.Errorf("fetch: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"voltage": m.Voltage,
			"current": m.Current,
		})
	})

	api.POST("/calculate", func(c *gin.Context) {
		var req calculateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, calculateResponse{
				Status: session.StatusInvalidInput.String(),
				Error:  errors.Wrap(err, "bind request").Error(),
			})
			return
		}

		res := a.session.Calculate(req.Length, req.SmallerRadiusLength)

		resp := calculateResponse{Status: res.Status.String()}
		if res.Status == session.StatusOK {
			x := res.Point.X
			resp.X = &x
			resp.Resistivity = messages.FloatP(res.Resistivity)
		}
		if res.Err != nil {
			resp.Error = res.Err.Error()
		}

		c.JSON(statusCodes[res.Status], resp)
	})

	api.GET("/state", func(c *gin.Context) {
		state := gin.H{
			"points": len(a.session.Series()),
		}
		if m := a.session.Measurement(); m != nil {
			state["voltage"] = m.Voltage
			state["current"] = m.Current
		}
		if latest := a.session.Latest(); latest != nil {
			state["resistivity"] = messages.FloatP(*latest)
		}
		c.JSON(http.StatusOK, state)
	})

	api.GET("/series", func(c *gin.Context) {
		data, err := storage.EncodeSeries(a.session.Series())
		if err != nil {
			_ = c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Data(http.StatusOK, "application/json", data)
	})

	api.GET("/chart", func(c *gin.Context) {
		c.JSON(http.StatusOK, messages.NewChart(a.session.Series(), a.session.Latest()))
	})

	r.GET("/ws", func(c *gin.Context) {
		conn, wsErr := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if wsErr != nil {
			_ = c.AbortWithError(http.StatusInternalServerError, wsErr)
			return
		}

		defer func() {
			_ = conn.Close(websocket.StatusInternalError, "Closed unexpectedly")
		}()

		// the client never sends; CloseRead cancels ctx when it goes away
		ctx := conn.CloseRead(c.Request.Context())

		if err := a.streamCharts(ctx, conn); err != nil {
			log.Debugf("ws: %v", err)
		}
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.gather, promhttp.HandlerOpts{})))

	return nil
}

// streamCharts writes charts from a subscription until the client goes away
// or the app shuts down.
func (a *App) streamCharts(ctx context.Context, conn *websocket.Conn) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub := subscription.NewSubscription(func() (schema.Series, *float64) {
		return a.session.Series(), a.session.Latest()
	})

	msgCh := make(chan *messages.Chart, 1)
	go sub.Run(ctx, a.broker, msgCh)

	for chart := range msgCh {
		if err := wsjson.Write(ctx, conn, chart); err != nil {
			cancel()
			for range msgCh {
			}
			return errors.Wrap(err, "write chart")
		}
	}
	return ctx.Err()
}
