package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strings"
	"time"

	"github.com/cyrilix/robocar-base/cli"
	"github.com/cyrilix/robocar-teleop/pkg/console"
	"github.com/cyrilix/robocar-teleop/pkg/events"
	"github.com/cyrilix/robocar-teleop/pkg/gateway"
	"github.com/cyrilix/robocar-teleop/pkg/keyboard"
	"github.com/cyrilix/robocar-teleop/pkg/simulator"
	"github.com/cyrilix/robocar-teleop/pkg/teleop"
	"go.uber.org/zap"
)

const DefaultClientId = "robocar-teleop"

func main() {
	var mqttBroker, username, password, clientId string
	var topicDrive, topicOppDrive, topicSteering, topicThrottle string
	var maxSteering, maxSpeed float64
	var period, publishTimeout time.Duration
	var address string
	var debug bool

	mqttQos := cli.InitIntFlag("MQTT_QOS", 0)
	_, mqttRetain := os.LookupEnv("MQTT_RETAIN")

	cli.InitMqttFlags(DefaultClientId, &mqttBroker, &username, &password, &clientId, &mqttQos, &mqttRetain)

	flag.StringVar(&topicDrive, "topic-drive", getEnv("MQTT_TOPIC_DRIVE", "/drive"), "Mqtt topic to publish ego drive commands, use MQTT_TOPIC_DRIVE if args not set")
	flag.StringVar(&topicOppDrive, "topic-opp-drive", getEnv("MQTT_TOPIC_OPP_DRIVE", "/opp_drive"), "Mqtt topic to publish opponent drive commands, use MQTT_TOPIC_OPP_DRIVE if args not set")
	flag.StringVar(&topicSteering, "topic-steering", os.Getenv("MQTT_TOPIC_STEERING"), "Mqtt topic to publish ego steering as robocar event, use MQTT_TOPIC_STEERING if args not set")
	flag.StringVar(&topicThrottle, "topic-throttle", os.Getenv("MQTT_TOPIC_THROTTLE"), "Mqtt topic to publish ego throttle as robocar event, use MQTT_TOPIC_THROTTLE if args not set")
	flag.Float64Var(&maxSteering, "max-steering", math.Pi/6, "Steering angle (rad) mapped to full robocar/simulator steering")
	flag.Float64Var(&maxSpeed, "max-speed", 10., "Speed mapped to full robocar/simulator throttle")
	flag.DurationVar(&period, "period", teleop.DefaultPeriod, "Delay between two keyboard reads")
	flag.DurationVar(&publishTimeout, "publish-timeout", events.DefaultPublishTimeout, "Max delay to complete a mqtt publication")
	flag.StringVar(&address, "simulator-address", os.Getenv("SIMULATOR_ADDRESS"), "Simulator address to drive ego car directly, disabled if empty")
	flag.BoolVar(&debug, "debug", false, "Debug logs")

	var carName, carStyle, carColor string
	carStyles := []string{
		string(simulator.CarConfigBodyStyleDonkey),
		string(simulator.CarConfigBodyStyleBare),
		string(simulator.CarConfigBodyStyleCar01),
	}
	flag.StringVar(&carName, "car-name", "", "Car name to display in simulator, car is not configured if empty")
	flag.StringVar(&carStyle, "car-style", string(simulator.CarConfigBodyStyleDonkey), fmt.Sprintf("Car style, only %s", strings.Join(carStyles, ",")))
	flag.StringVar(&carColor, "car-color", "0,0,0", "Color car as rgb value")

	flag.Parse()
	if err := checkLimits(maxSteering, maxSpeed, period, publishTimeout); err != nil {
		log.Fatalf("invalid flags: %v", err)
	}

	config := zap.NewDevelopmentConfig()
	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	lgr, err := config.Build()
	if err != nil {
		log.Fatalf("unable to init logger: %v", err)
	}
	defer func() {
		if err := lgr.Sync(); err != nil {
			log.Printf("unable to Sync logger: %v\n", err)
		}
	}()
	zap.ReplaceGlobals(lgr)

	client, err := cli.Connect(mqttBroker, username, password, clientId)
	if err != nil {
		zap.S().Fatalf("unable to connect to events broker: %v", err)
	}
	defer client.Disconnect(10)

	publishers := []teleop.Publisher{
		events.NewDrivePublisher(
			events.NewMqttPublisher(client, byte(mqttQos), mqttRetain, publishTimeout),
			topicDrive,
			topicOppDrive,
			events.RobocarTopics{
				Steering:    topicSteering,
				Throttle:    topicThrottle,
				MaxSteering: maxSteering,
				MaxSpeed:    maxSpeed,
			},
		),
	}

	if address != "" {
		carConfig, err := newCarConfig(carName, carStyle, carColor)
		if err != nil {
			zap.S().Fatalf("invalid car config: %v", err)
		}
		gtw := gateway.New(address, carConfig, maxSteering, maxSpeed)
		if err := gtw.Connect(); err != nil {
			zap.S().Fatalf("unable to init gateway: %v", err)
		}
		defer func() {
			if err := gtw.Close(); err != nil {
				zap.S().Warnf("unable to close gateway: %v", err)
			}
		}()
		publishers = append(publishers, gtw)
	}

	loop := teleop.New(
		keyboard.New(os.Stdin),
		console.New(os.Stdout, console.DefaultMaxLines),
		publishers,
		teleop.WithPeriod(period),
	)
	p := newPart(loop)
	cli.HandleExit(p)

	err = p.Start()
	if err != nil {
		zap.S().Fatalf("unable to run teleop: %v", err)
	}
}

func checkLimits(maxSteering, maxSpeed float64, period, publishTimeout time.Duration) error {
	if !(maxSteering > 0) {
		return fmt.Errorf("max-steering must be positive, got %v", maxSteering)
	}
	if !(maxSpeed > 0) {
		return fmt.Errorf("max-speed must be positive, got %v", maxSpeed)
	}
	if period <= 0 {
		return fmt.Errorf("period must be positive, got %v", period)
	}
	if publishTimeout <= 0 {
		return fmt.Errorf("publish-timeout must be positive, got %v", publishTimeout)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

func newCarConfig(carName, carStyle, carColor string) (*simulator.CarConfigMsg, error) {
	if carName == "" {
		return nil, nil
	}
	bodyColors := strings.Split(carColor, ",")
	if len(bodyColors) != 3 {
		return nil, fmt.Errorf("bad car color '%v', wants r,g,b", carColor)
	}
	return &simulator.CarConfigMsg{
		MsgType:   simulator.MsgTypeCarConfig,
		BodyStyle: simulator.CarStyle(carStyle),
		BodyR:     bodyColors[0],
		BodyG:     bodyColors[1],
		BodyB:     bodyColors[2],
		CarName:   carName,
		FontSize:  "0",
	}, nil
}

func newPart(loop *teleop.Loop) *part {
	ctx, cancel := context.WithCancel(context.Background())
	return &part{
		loop:   loop,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// part runs teleop loop until quit key or signal
type part struct {
	loop   *teleop.Loop
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func (p *part) Start() error {
	defer close(p.done)
	err := p.loop.Run(p.ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop waits for the loop to exit so that terminal settings are restored
func (p *part) Stop() {
	p.cancel()
	<-p.done
}
