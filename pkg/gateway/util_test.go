package gateway

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/cyrilix/robocar-teleop/pkg/simulator"
	"go.uber.org/zap"
)

// SimulatorMock accepts gateway connections and notifies received control and car messages.
// Notification channels are never closed: handlers stop sending once done is closed.
type SimulatorMock struct {
	initOnce sync.Once

	ln   net.Listener
	done chan struct{}

	muConns sync.Mutex
	conns   []net.Conn
	wg      sync.WaitGroup

	ctrlChan chan *simulator.ControlMsg
	carChan  chan *simulator.CarConfigMsg
}

func (s *SimulatorMock) init() {
	s.done = make(chan struct{})
	s.ctrlChan = make(chan *simulator.ControlMsg)
	s.carChan = make(chan *simulator.CarConfigMsg)
}

func (s *SimulatorMock) NotifyCtrl() <-chan *simulator.ControlMsg {
	s.initOnce.Do(s.init)
	return s.ctrlChan
}

func (s *SimulatorMock) NotifyCar() <-chan *simulator.CarConfigMsg {
	s.initOnce.Do(s.init)
	return s.carChan
}

func (s *SimulatorMock) Listen() error {
	s.initOnce.Do(s.init)
	ln, err := net.Listen("tcp", "127.0.0.1:")
	if err != nil {
		return fmt.Errorf("unable to listen on port: %w", err)
	}
	s.ln = ln

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				zap.S().Debugf("stop accepting connections: %v", err)
				return
			}
			s.muConns.Lock()
			select {
			case <-s.done:
				s.muConns.Unlock()
				_ = conn.Close()
				return
			default:
			}
			s.conns = append(s.conns, conn)
			s.wg.Add(1)
			s.muConns.Unlock()

			go s.handle(conn)
		}
	}()
	return nil
}

func (s *SimulatorMock) Addr() string {
	return s.ln.Addr().String()
}

func (s *SimulatorMock) handle(conn net.Conn) {
	defer s.wg.Done()
	log := zap.S().With("simulator", "mock")
	scanner := bufio.NewScanner(conn)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		raw := scanner.Bytes()
		var msg simulator.Msg
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Errorf("unable to unmarshal msg \"%s\": %v", raw, err)
			continue
		}

		switch msg.MsgType {
		case simulator.MsgTypeControl:
			var ctrl simulator.ControlMsg
			if err := json.Unmarshal(raw, &ctrl); err != nil {
				log.Errorf("unable to unmarshal control msg \"%s\": %v", raw, err)
				continue
			}
			select {
			case s.ctrlChan <- &ctrl:
			case <-s.done:
				return
			}
		case simulator.MsgTypeCarConfig:
			var car simulator.CarConfigMsg
			if err := json.Unmarshal(raw, &car); err != nil {
				log.Errorf("unable to unmarshal car msg \"%s\": %v", raw, err)
				continue
			}
			select {
			case s.carChan <- &car:
			case <-s.done:
				return
			}
			if err := writeMsg(writer, simulator.Msg{MsgType: simulator.MsgTypeCarLoaded}); err != nil {
				log.Errorf("unable to write car loaded response: %v", err)
			}
		}
	}
	log.Debugf("connection closed: %v", scanner.Err())
}

func writeMsg(w *bufio.Writer, msg interface{}) error {
	content, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(content, '\n')); err != nil {
		return err
	}
	return w.Flush()
}

// Close stops the listener, closes accepted connections and waits for handlers to exit
func (s *SimulatorMock) Close() error {
	s.initOnce.Do(s.init)
	close(s.done)

	var err error
	if s.ln != nil {
		if errLn := s.ln.Close(); errLn != nil {
			err = fmt.Errorf("unable to close mock server: %w", errLn)
		}
	}

	s.muConns.Lock()
	for _, c := range s.conns {
		_ = c.Close()
	}
	s.muConns.Unlock()

	s.wg.Wait()
	return err
}
