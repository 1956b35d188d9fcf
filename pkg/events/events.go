package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cyrilix/robocar-protobuf/go/events"
	"github.com/cyrilix/robocar-teleop/pkg/drive"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/protobuf/proto"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	FrameIdEgo      = "ego"
	FrameIdOpponent = "opponent"

	frameRefName = "teleop"
)

// RobocarTopics configures the optional publication of ego commands as robocar steering and
// throttle events. An empty topic disables the matching event.
type RobocarTopics struct {
	Steering    string
	Throttle    string
	MaxSteering float64
	MaxSpeed    float64
}

func NewDrivePublisher(p Publisher, topicEgo, topicOpponent string, robocar RobocarTopics) *DrivePublisher {
	return &DrivePublisher{
		p:             p,
		topicEgo:      topicEgo,
		topicOpponent: topicOpponent,
		robocar:       robocar,
		log:           zap.S().With("topic_ego", topicEgo, "topic_opponent", topicOpponent),
	}
}

// DrivePublisher emits drive commands of both vehicles
type DrivePublisher struct {
	p             Publisher
	topicEgo      string
	topicOpponent string
	robocar       RobocarTopics

	log *zap.SugaredLogger
}

// Publish sends ego then opponent commands, stopping at the first failure
func (d *DrivePublisher) Publish(now time.Time, v drive.Vehicles) error {
	if err := d.publishDrive(d.topicEgo, v.Ego.Message(now, FrameIdEgo)); err != nil {
		return fmt.Errorf("unable to publish ego drive: %w", err)
	}
	if err := d.publishDrive(d.topicOpponent, v.Opponent.Message(now, FrameIdOpponent)); err != nil {
		return fmt.Errorf("unable to publish opponent drive: %w", err)
	}
	return d.publishRobocar(now, v.Ego)
}

func (d *DrivePublisher) publishDrive(topic string, msg *drive.AckermannDriveStamped) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("unable to marshal drive message: %w", err)
	}
	d.log.Debugf("publish to %v: %s", topic, payload)
	return d.p.Publish(topic, payload)
}

func (d *DrivePublisher) publishRobocar(now time.Time, ego drive.State) error {
	if d.robocar.Steering == "" && d.robocar.Throttle == "" {
		return nil
	}
	steering, throttle := ego.Normalized(d.robocar.MaxSteering, d.robocar.MaxSpeed)
	frameRef := &events.FrameRef{
		Name:      frameRefName,
		Id:        fmt.Sprintf("%d%03d", now.Unix(), now.Nanosecond()/1000/1000),
		CreatedAt: timestamppb.New(now),
	}

	if d.robocar.Steering != "" {
		msg := &events.SteeringMessage{
			Steering:   float32(steering),
			Confidence: 1.0,
			FrameRef:   frameRef,
		}
		if err := d.publishProto(d.robocar.Steering, msg); err != nil {
			return fmt.Errorf("unable to publish steering: %w", err)
		}
	}
	if d.robocar.Throttle != "" {
		msg := &events.ThrottleMessage{
			Throttle:   float32(throttle),
			Confidence: 1.0,
			FrameRef:   frameRef,
		}
		if err := d.publishProto(d.robocar.Throttle, msg); err != nil {
			return fmt.Errorf("unable to publish throttle: %w", err)
		}
	}
	return nil
}

func (d *DrivePublisher) publishProto(topic string, msg proto.Message) error {
	payload, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("unable to marshal protobuf message: %w", err)
	}
	return d.p.Publish(topic, payload)
}

type Publisher interface {
	Publish(topic string, payload []byte) error
}

// DefaultPublishTimeout is one tick at 10 Hz
const DefaultPublishTimeout = 100 * time.Millisecond

func NewMqttPublisher(client mqtt.Client, qos byte, retain bool, timeout time.Duration) *MqttPublisher {
	return &MqttPublisher{client: client, qos: qos, retain: retain, timeout: timeout}
}

type MqttPublisher struct {
	client  mqtt.Client
	qos     byte
	retain  bool
	timeout time.Duration
}

func (m *MqttPublisher) Publish(topic string, payload []byte) error {
	token := m.client.Publish(topic, m.qos, m.retain, payload)
	if !token.WaitTimeout(m.timeout) {
		return fmt.Errorf("unable to publish to topic %v: not acknowledged after %v", topic, m.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("unable to publish to topic %v: %w", topic, err)
	}
	return nil
}
