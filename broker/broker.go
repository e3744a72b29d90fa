package broker

import (
	"context"
	"sync/atomic"
)

// https://stackoverflow.com/questions/36417199/how-to-broadcast-message-using-channel

type Message interface {
	Name() string
}

type Broker struct {
	subCount  int64  // needs 64-bit alignment
	dropCount uint64 // needs 64-bit alignment

	doneCh    chan struct{}
	publishCh chan Message
	subCh     chan chan Message
	unsubCh   chan chan Message
}

func NewBroker() *Broker {
	return &Broker{
		doneCh:    make(chan struct{}),
		publishCh: make(chan Message, 1),
		subCh:     make(chan chan Message, 1),
		unsubCh:   make(chan chan Message, 1),
	}
}

// Start fans published messages out to subscribers until ctx is done. On
// exit every subscriber channel is closed.
func (b *Broker) Start(ctx context.Context) {
	subs := map[chan Message]struct{}{}
	defer func() {
		close(b.doneCh)
		for msgCh := range subs {
			close(msgCh)
		}
		// subscriptions that were queued but never registered
		for {
			select {
			case msgCh := <-b.subCh:
				close(msgCh)
			default:
				return
			}
		}
	}()

	subscribe := func(msgCh chan Message) {
		subs[msgCh] = struct{}{}
		atomic.StoreInt64(&b.subCount, int64(len(subs)))
	}
	unsubscribe := func(msgCh chan Message) {
		if _, ok := subs[msgCh]; ok {
			delete(subs, msgCh)
			close(msgCh)
		}
		atomic.StoreInt64(&b.subCount, int64(len(subs)))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case msgCh := <-b.subCh:
			subscribe(msgCh)
		case msgCh := <-b.unsubCh:
			unsubscribe(msgCh)
		case msg := <-b.publishCh:
			// a Subscribe that returned before this Publish must see msg
			for pending := true; pending; {
				select {
				case msgCh := <-b.subCh:
					subscribe(msgCh)
				case msgCh := <-b.unsubCh:
					unsubscribe(msgCh)
				default:
					pending = false
				}
			}
			for msgCh := range subs {
				// msgCh is buffered, use non-blocking send to protect the broker:
				select {
				case msgCh <- msg:
				default:
					atomic.AddUint64(&b.dropCount, 1)
				}
			}
		}
	}
}

func (b *Broker) Subscribe() chan Message {
	msgCh := make(chan Message, 64)
	select {
	case <-b.doneCh:
		close(msgCh)
		return msgCh
	default:
	}
	select {
	case b.subCh <- msgCh:
	case <-b.doneCh:
		close(msgCh)
	}
	return msgCh
}

func (b *Broker) Unsubscribe(msgCh chan Message) {
	select {
	case b.unsubCh <- msgCh:
	case <-b.doneCh:
	}
}

func (b *Broker) Publish(msg Message) {
	select {
	case b.publishCh <- msg:
	case <-b.doneCh:
	}
}

func (b *Broker) SubCount() int {
	return int(atomic.LoadInt64(&b.subCount))
}

func (b *Broker) DropCount() int {
	return int(atomic.LoadUint64(&b.dropCount))
}

type Publisher interface {
	Publish(msg Message)
}
