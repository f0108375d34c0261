package mproto

import (
	"context"
	"fmt"

	"github.com/lareeq/massa/mcodec"
	"github.com/lareeq/massa/mframe"
)

// WriteMessage encodes m and sends it as a single frame.
func WriteMessage(ctx context.Context, f mframe.Framer, m Message, sc *mcodec.SerializationContext) error {
	b, err := EncodeMessage(m, sc)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", m.Type(), err)
	}
	if err := f.WriteFrame(ctx, b); err != nil {
		return fmt.Errorf("failed to send %s message: %w", m.Type(), err)
	}
	return nil
}

// ReadMessage receives one frame and decodes it as exactly one message.
func ReadMessage(ctx context.Context, f mframe.Framer, sc *mcodec.SerializationContext) (Message, error) {
	b, err := f.ReadFrame(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to receive message: %w", err)
	}
	m, err := DecodeSingleMessage(b, sc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	return m, nil
}
