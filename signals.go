package facet

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for facet events.
var (
	SignalDescribeComplete    = capitan.NewSignal("facet.describe.complete", "Type descriptor built and cached")
	SignalWalkStart           = capitan.NewSignal("facet.walk.start", "Graph walk beginning")
	SignalWalkComplete        = capitan.NewSignal("facet.walk.complete", "Graph walk finished")
	SignalWalkTruncated       = capitan.NewSignal("facet.walk.truncated", "Graph walk stopped at a ceiling")
	SignalWalkPropertySkipped = capitan.NewSignal("facet.walk.property.skipped", "Property read failed during a walk")
	SignalProcessorCreated    = capitan.NewSignal("facet.processor.created", "Processor instantiated")
	SignalEncodeStart         = capitan.NewSignal("facet.encode.start", "Encode operation beginning")
	SignalEncodeComplete      = capitan.NewSignal("facet.encode.complete", "Encode operation finished")
	SignalDecodeStart         = capitan.NewSignal("facet.decode.start", "Decode operation beginning")
	SignalDecodeComplete      = capitan.NewSignal("facet.decode.complete", "Decode operation finished")
	SignalConverterRegistered = capitan.NewSignal("facet.converter.registered", "Conversion rule registered")
)

// Keys for typed event data.
var (
	KeyTypeName      = capitan.NewStringKey("type_name")
	KeyMode          = capitan.NewStringKey("mode")
	KeyPropertyCount = capitan.NewIntKey("property_count")
	KeyProperty      = capitan.NewStringKey("property")
	KeyNodes         = capitan.NewIntKey("nodes")
	KeyDepth         = capitan.NewIntKey("depth")
	KeyReason        = capitan.NewStringKey("reason")
	KeyTarget        = capitan.NewStringKey("target")
	KeyContentType   = capitan.NewStringKey("content_type")
	KeySize          = capitan.NewIntKey("size")
	KeyDuration      = capitan.NewDurationKey("duration")
	KeyError         = capitan.NewErrorKey("error")
)

func emitDescribeComplete(ctx context.Context, typeName string, mode Mode, count int, duration time.Duration) {
	capitan.Emit(ctx, SignalDescribeComplete,
		KeyTypeName.Field(typeName),
		KeyMode.Field(mode.String()),
		KeyPropertyCount.Field(count),
		KeyDuration.Field(duration),
	)
}

func emitWalkStart(ctx context.Context, typeName string, depth int) {
	capitan.Emit(ctx, SignalWalkStart,
		KeyTypeName.Field(typeName),
		KeyDepth.Field(depth),
	)
}

func emitWalkComplete(ctx context.Context, typeName string, nodes int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyTypeName.Field(typeName),
		KeyNodes.Field(nodes),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalWalkComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalWalkComplete, fields...)
	}
}

// emitWalkTruncated reports which ceiling stopped a walk: "nodes" or "size".
func emitWalkTruncated(ctx context.Context, typeName, reason string, nodes int) {
	capitan.Emit(ctx, SignalWalkTruncated,
		KeyTypeName.Field(typeName),
		KeyReason.Field(reason),
		KeyNodes.Field(nodes),
	)
}

func emitPropertySkipped(ctx context.Context, typeName, property string, err error) {
	capitan.Emit(ctx, SignalWalkPropertySkipped,
		KeyTypeName.Field(typeName),
		KeyProperty.Field(property),
		KeyError.Field(err),
	)
}

func emitConverterRegistered(ctx context.Context, target string) {
	capitan.Emit(ctx, SignalConverterRegistered,
		KeyTarget.Field(target),
	)
}

// emitProcessorCreated emits an event when a processor is created.
func emitProcessorCreated(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalProcessorCreated,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

// emitEncodeStart emits an event when encode begins.
func emitEncodeStart(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalEncodeStart,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

// emitEncodeComplete emits an event when encode finishes.
func emitEncodeComplete(ctx context.Context, contentType, typeName string, size, nodes int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyNodes.Field(nodes),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalEncodeComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalEncodeComplete, fields...)
	}
}

// emitDecodeStart emits an event when decode begins.
func emitDecodeStart(ctx context.Context, contentType, typeName string, size int) {
	capitan.Emit(ctx, SignalDecodeStart,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
	)
}

// emitDecodeComplete emits an event when decode finishes.
func emitDecodeComplete(ctx context.Context, contentType, typeName string, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalDecodeComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalDecodeComplete, fields...)
	}
}
