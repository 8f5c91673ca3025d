package notifier

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"charge_point_tester/notifier"
)

const notificationBuffer = 64

// natsFlowNotifier publishes flow notifications to <subject>.<topic>.
type natsFlowNotifier struct {
	notification chan notifier.Notification //canal de resultados del flujo
	connection   *nats.Conn
	subject      string
	timeout      time.Duration //tiempo de espera para vaciar el canal al detenerse
	done         chan struct{}
	wg           sync.WaitGroup
}

func (ncs *natsFlowNotifier) SetTimeout(timeout time.Duration) {
	ncs.timeout = timeout
}

func (ncs *natsFlowNotifier) Timeout() time.Duration {
	return ncs.timeout
}

func (ncs *natsFlowNotifier) Notify(n notifier.Notification) {
	select {
	case ncs.notification <- n:
	case <-ncs.done:
	}
}

func (ncs *natsFlowNotifier) publishNotifications() {
	defer ncs.wg.Done()
	for {
		select {
		case n := <-ncs.notification:
			ncs.publish(n)
		case <-ncs.done:
			for {
				select {
				case n := <-ncs.notification:
					ncs.publish(n)
				default:
					return
				}
			}
		}
	}
}

func (ncs *natsFlowNotifier) publish(n notifier.Notification) {
	bt, err := json.Marshal(n.Data)
	if err != nil {
		log.Error(err)
		return
	}
	if err := ncs.connection.Publish(ncs.subject+"."+n.Topic, bt); err != nil {
		log.WithField("topic", n.Topic).Errorf("couldn't publish notification: %v", err)
	}
}

// Start connects to the NATS server at url and begins publishing.
func (ncs *natsFlowNotifier) Start(url string) error {
	nc, err := nats.Connect(url, nats.Name("charge-point-tester"))
	if err != nil {
		return err
	}
	ncs.connection = nc
	ncs.wg.Add(1)
	go ncs.publishNotifications()
	return nil
}

// Stop publishes pending notifications, flushes and closes the connection.
func (ncs *natsFlowNotifier) Stop() {
	if ncs.connection == nil {
		return
	}
	close(ncs.done)
	ncs.wg.Wait()
	if err := ncs.connection.FlushTimeout(ncs.timeout); err != nil {
		log.Warnf("couldn't flush NATS notifications: %v", err)
	}
	ncs.connection.Close()
	log.Info("NatsStopped")
}

func New(subject string) *natsFlowNotifier {
	return &natsFlowNotifier{
		notification: make(chan notifier.Notification, notificationBuffer),
		subject:      subject,
		timeout:      5 * time.Second,
		done:         make(chan struct{}),
	}
}
