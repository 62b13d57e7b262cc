package connectors

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// DefaultGRPCMethod - унарный метод сервиса модели. Запрос и ответ - google.protobuf.Struct,
// поэтому сгенерированный клиент не нужен.
const DefaultGRPCMethod = "/floorwatch.rul.v1.RULService/Predict"

type GRPCScorer struct {
	conn    grpc.ClientConnInterface
	method  string
	timeout time.Duration
}

func NewGRPCScorer(conn grpc.ClientConnInterface, method string, timeout time.Duration) *GRPCScorer {
	if method == "" {
		method = DefaultGRPCMethod
	}
	return &GRPCScorer{conn: conn, method: method, timeout: timeout}
}

func (a *GRPCScorer) Score(ctx context.Context, features []float64) (float64, error) {
	// 1. Вектор признаков -> Struct{"features": [...]}
	values := make([]any, len(features))
	for i, f := range features {
		values[i] = f
	}
	req, err := structpb.NewStruct(map[string]any{"features": values})
	if err != nil {
		return 0, fmt.Errorf("failed to create proto struct: %w", err)
	}

	// 2. Защитный таймаут на уровне вызова, независимо от внешней обёртки
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	resp := &structpb.Struct{}
	if err := a.conn.Invoke(ctx, a.method, req, resp); err != nil {
		if status.Code(err) == codes.ResourceExhausted {
			return 0, &ThrottleError{RetryAfter: defaultRetryAfter, Cause: err}
		}
		return 0, fmt.Errorf("scorer call failed: %w", err)
	}

	// 3. Ответ {"rul": number}
	v, ok := resp.GetFields()["rul"]
	if !ok {
		return 0, fmt.Errorf("%w: rul is missing", ErrBadResponse)
	}
	num, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%w: rul is not a number", ErrBadResponse)
	}
	return num.NumberValue, nil
}
