package events

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/LENAX/lazyflow/pkg/core/engine"
)

const topicPrefix = "lazyflow."

// Bus 基于 watermill gochannel 的进程内事件总线（对外导出）
// 实现 engine.Listener，可直接通过 engine.WithListener 注册到 Pipeline
// 发布会等待全部订阅者确认，保证同一订阅者看到的事件顺序与发布顺序一致
type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter
	buffer int
}

var _ engine.Listener = (*Bus)(nil)

// BusOption 事件总线选项
type BusOption func(*Bus)

// WithSubscriberBuffer 订阅通道缓冲大小，默认 64
func WithSubscriberBuffer(n int) BusOption {
	return func(b *Bus) {
		if n >= 0 {
			b.buffer = n
		}
	}
}

// NewBus 创建事件总线（对外导出）
func NewBus(debug bool, opts ...BusOption) *Bus {
	logger := watermill.NewStdLogger(debug, false)
	b := &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{
				Persistent:                     false,
				BlockPublishUntilSubscriberAck: true,
			},
			logger,
		),
		logger: logger,
		buffer: 64,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func topic(t EventType) string {
	return topicPrefix + string(t)
}

// Publish 发布事件，没有订阅者时事件被丢弃
func (b *Bus) Publish(event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("run_id", event.RunID)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339Nano))

	if err := b.pubsub.Publish(topic(event.Type), msg); err != nil {
		return fmt.Errorf("发布事件失败: %w", err)
	}
	return nil
}

// Subscribe 订阅指定类型的事件，未指定时订阅全部类型
// ctx 结束后返回的通道被关闭
// 发布会等待确认，读取慢的订阅者会拖慢发布方（即正在运行的Pipeline）
func (b *Bus) Subscribe(ctx context.Context, eventTypes ...EventType) (<-chan *Event, error) {
	return b.subscribe(ctx, false, eventTypes)
}

// SubscribeDropping 与 Subscribe 相同，但缓冲已满时直接丢弃事件
// 用于不能阻塞运行的远程订阅者，如 websocket 客户端
func (b *Bus) SubscribeDropping(ctx context.Context, eventTypes ...EventType) (<-chan *Event, error) {
	return b.subscribe(ctx, true, eventTypes)
}

func (b *Bus) subscribe(ctx context.Context, drop bool, eventTypes []EventType) (<-chan *Event, error) {
	if len(eventTypes) == 0 {
		eventTypes = AllEventTypes
	}
	inputs := make([]<-chan *message.Message, 0, len(eventTypes))
	for _, t := range eventTypes {
		in, err := b.pubsub.Subscribe(ctx, topic(t))
		if err != nil {
			return nil, fmt.Errorf("订阅 %s 失败: %w", t, err)
		}
		inputs = append(inputs, in)
	}

	out := make(chan *Event, b.buffer)
	var wg sync.WaitGroup
	for _, in := range inputs {
		wg.Add(1)
		go func(in <-chan *message.Message) {
			defer wg.Done()
			b.forward(ctx, in, out, drop)
		}(in)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

// forward 解码消息并转发，转发后确认
func (b *Bus) forward(ctx context.Context, in <-chan *message.Message, out chan<- *Event, drop bool) {
	for msg := range in {
		var event Event
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			b.logger.Error("解码事件失败", err, watermill.LogFields{"message_uuid": msg.UUID})
			msg.Ack()
			continue
		}
		if drop {
			select {
			case out <- &event:
			default:
				b.logger.Info("订阅者缓冲已满，丢弃事件", watermill.LogFields{"event_type": event.Type, "run_id": event.RunID})
			}
			msg.Ack()
			continue
		}
		select {
		case out <- &event:
		case <-ctx.Done():
		}
		msg.Ack()
	}
}

// Close 关闭事件总线，全部订阅通道随之关闭
func (b *Bus) Close() error {
	return b.pubsub.Close()
}

func (b *Bus) OnRunStarted(report *engine.RunReport) {
	b.publish(NewRunEvent(EventRunStarted, report))
}

func (b *Bus) OnNodeFinished(runID string, node engine.NodeReport) {
	b.publish(NewNodeEvent(runID, node))
}

func (b *Bus) OnRunFinished(report *engine.RunReport) {
	b.publish(NewRunEvent(EventRunFinished, report))
}

func (b *Bus) publish(event *Event) {
	if err := b.Publish(event); err != nil {
		log.Printf("⚠️ [事件总线] %s 发布失败: RunID=%s, Error=%v", event.Type, event.RunID, err)
	}
}
