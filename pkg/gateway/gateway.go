package gateway

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"github.com/cyrilix/robocar-teleop/pkg/drive"
	"github.com/cyrilix/robocar-teleop/pkg/simulator"
	"go.uber.org/zap"
)

func New(addressSimulator string, carConfig *simulator.CarConfigMsg, maxSteering, maxSpeed float64) *Gateway {
	l := zap.S().With("simulator", addressSimulator)
	l.Info("run gateway to simulator")

	return &Gateway{
		address:     addressSimulator,
		carConfig:   carConfig,
		maxSteering: maxSteering,
		maxSpeed:    maxSpeed,
		log:         l,
	}
}

/* Simulator interface to forward ego drive commands */
type Gateway struct {
	address     string
	carConfig   *simulator.CarConfigMsg
	maxSteering float64
	maxSpeed    float64

	muConn sync.Mutex
	conn   io.WriteCloser

	log *zap.SugaredLogger
}

// Connect opens the simulator connection, retrying until the simulator is up
func (g *Gateway) Connect() error {
	g.muConn.Lock()
	defer g.muConn.Unlock()

	err := retry.Do(func() error {
		g.log.Info("connect to simulator")
		conn, err := connect(g.address)
		if err != nil {
			return fmt.Errorf("unable to connect to simulator at %v", g.address)
		}
		g.conn = conn
		g.log.Info("connection success")
		return nil
	},
		retry.Delay(1*time.Second),
		retry.Attempts(connectAttempts),
	)
	if err != nil {
		return fmt.Errorf("unable to connect to simulator: %w", err)
	}

	if g.carConfig == nil {
		return nil
	}
	g.log.Infof("configure car %v", g.carConfig.CarName)
	return g.writeContent(g.carConfig)
}

func (g *Gateway) Close() error {
	g.muConn.Lock()
	defer g.muConn.Unlock()

	if g.conn == nil {
		g.log.Warn("no connection to close")
		return nil
	}
	if err := g.conn.Close(); err != nil {
		return fmt.Errorf("unable to close connection to simulator: %w", err)
	}
	g.conn = nil
	return nil
}

// Publish writes the ego command as simulator control. Opponent is driven by another
// participant of the simulation.
func (g *Gateway) Publish(_ time.Time, v drive.Vehicles) error {
	g.muConn.Lock()
	defer g.muConn.Unlock()

	return g.writeContent(g.controlMsg(v.Ego))
}

func (g *Gateway) controlMsg(ego drive.State) *simulator.ControlMsg {
	steering, throttle := ego.Normalized(g.maxSteering, g.maxSpeed)

	msg := simulator.ControlMsg{
		MsgType:  simulator.MsgTypeControl,
		Steering: formatFloat(steering),
		Throttle: formatFloat(0.),
		Brake:    formatFloat(0.),
	}
	if throttle > 0 {
		msg.Throttle = formatFloat(throttle)
	} else if throttle < 0 {
		msg.Brake = formatFloat(-1 * throttle)
	}
	return &msg
}

func (g *Gateway) writeContent(msg interface{}) error {
	if g.conn == nil {
		return fmt.Errorf("no connection to simulator")
	}
	w := bufio.NewWriter(g.conn)
	content, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("unable to marshall msg \"%#v\": %w", msg, err)
	}

	_, err = w.Write(append(content, '\n'))
	if err != nil {
		return fmt.Errorf("unable to write msg \"%#v\" to simulator: %w", msg, err)
	}
	err = w.Flush()
	if err != nil {
		return fmt.Errorf("unable to flush msg \"%#v\" to simulator: %w", msg, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

var connectAttempts uint = 10

var connect = func(address string) (io.WriteCloser, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to %v", address)
	}
	return conn, nil
}
