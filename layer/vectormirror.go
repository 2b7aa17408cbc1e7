package layer

import (
	"context"
	"fmt"
	"reflect"

	"github.com/ChristofferGreen/pathspace/core"
	"github.com/ChristofferGreen/pathspace/notify"
	"github.com/ChristofferGreen/pathspace/path"

	pb "github.com/qdrant/go-client/qdrant"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Vector is the payload type VectorMirror accepts: an embedding plus the
// opaque payload fields mirrored alongside it in Qdrant.
type Vector struct {
	Embedding []float32
	Payload   map[string]any
}

var vectorType = reflect.TypeOf(Vector{})

// VectorMirror is a C6 provider that writes every inserted Vector into a
// Qdrant collection as an upsert, and serves reads back from a single
// in-memory FIFO of every mirrored Vector. Out ignores the path tail: a
// read returns (and a take removes) the oldest queued Vector inserted
// anywhere under the mount; no per-path view is kept. Qdrant's own
// search API is not used; the mirror exists so other systems can query
// the collection directly.
type VectorMirror struct {
	prefix string

	conn       *grpc.ClientConn
	points     pb.PointsClient
	collection string

	last *EventQueue
}

// NewVectorMirror dials addr and prepares to mirror into collection.
// EnsureCollection must be called once (typically at startup) before
// any inserts arrive.
func NewVectorMirror(addr, collection string) (*VectorMirror, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("layer: dial qdrant %s: %w", addr, err)
	}
	return &VectorMirror{
		conn:       conn,
		points:     pb.NewPointsClient(conn),
		collection: collection,
		last:       NewEventQueue(),
	}, nil
}

// EnsureCollection creates the backing Qdrant collection if absent.
func (v *VectorMirror) EnsureCollection(ctx context.Context, dims int) error {
	client := pb.NewCollectionsClient(v.conn)
	list, err := client.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("layer: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}
	_, err = client.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{Size: uint64(dims), Distance: pb.Distance_Cosine},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("layer: create collection %s: %w", v.collection, err)
	}
	return nil
}

func toQdrantPayload(m map[string]any) map[string]*pb.Value {
	out := make(map[string]*pb.Value, len(m))
	for k, val := range m {
		switch tv := val.(type) {
		case string:
			out[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
		case int:
			out[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
		case int64:
			out[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
		case float64:
			out[k] = &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
		case bool:
			out[k] = &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
		default:
			out[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
		}
	}
	return out
}

func (v *VectorMirror) In(tail path.Iterator, value any, opts core.InOptions) InsertReturn {
	vec, ok := value.(Vector)
	if !ok {
		return InsertReturn{Errors: []error{core.New(core.CodeInvalidType, "vectormirror accepts only Vector").WithPath(tail.Full())}}
	}

	id := uuid.NewString()
	payload := toQdrantPayload(vec.Payload)
	payload["path"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: tail.Full()}}

	point := &pb.PointStruct{
		Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: id}},
		Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vec.Embedding}}},
		Payload: payload,
	}
	wait := true
	_, err := v.points.Upsert(context.Background(), &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         []*pb.PointStruct{point},
	})
	if err != nil {
		return InsertReturn{Errors: []error{core.Wrap(core.CodeUnknownError, "qdrant upsert failed", err).WithPath(tail.Full())}}
	}

	v.last.Push(vec)
	return InsertReturn{NbrValuesInserted: 1}
}

func (v *VectorMirror) Out(tail path.Iterator, want reflect.Type, opts core.Out) (any, error) {
	if want != vectorType {
		return nil, core.ErrTypeMismatch
	}
	return v.last.Out(want, opts)
}

func (v *VectorMirror) Shutdown() {
	v.last.Shutdown()
	v.conn.Close()
}

func (v *VectorMirror) Notify(p string) {}
func (v *VectorMirror) AdoptContextAndPrefix(bus *notify.Bus, prefix string) { v.prefix = prefix }
