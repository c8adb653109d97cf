package dataset

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeObject struct {
	body     string
	modified time.Time
}

type fakeS3 struct {
	objects map[string]fakeObject
	headErr error
	gets    int
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.body))),
		LastModified:  aws.Time(obj.modified),
	}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gets++
	obj := f.objects[aws.ToString(in.Key)]
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(strings.NewReader(obj.body)),
		ContentLength: aws.Int64(int64(len(obj.body))),
	}, nil
}

func TestS3ProviderPicksNewestAndCountsRows(t *testing.T) {
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	api := &fakeS3{objects: map[string]fakeObject{
		"data.csv":   {body: "a\n1\n", modified: base},
		"output.csv": {body: "a,b\n1,2\n3,4\n", modified: base.Add(time.Hour)},
	}}

	p := NewS3ProviderWithClient(api, "relay", []string{"data.csv", "output.csv", "coordinates.csv"})
	snap, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if snap.Path != "s3://relay/output.csv" || snap.Rows != 3 || snap.Size != 12 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if !snap.ModifiedTime.Equal(base.Add(time.Hour)) {
		t.Fatalf("unexpected mtime %v", snap.ModifiedTime)
	}
}

func TestS3ProviderMissingAndErrors(t *testing.T) {
	p := NewS3ProviderWithClient(&fakeS3{objects: map[string]fakeObject{}}, "relay", []string{"data.csv"})
	snap, err := p.Snapshot(context.Background())
	if err != nil || snap.Exists {
		t.Fatalf("expected missing snapshot without error, got %+v err=%v", snap, err)
	}

	boom := errors.New("access denied")
	p = NewS3ProviderWithClient(&fakeS3{headErr: boom}, "relay", []string{"data.csv"})
	if _, err := p.Snapshot(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped head error, got %v", err)
	}
}

func TestS3ProviderSkipsDownloadForEmptyObject(t *testing.T) {
	api := &fakeS3{objects: map[string]fakeObject{"data.csv": {modified: time.Unix(1, 0)}}}
	p := NewS3ProviderWithClient(api, "relay", []string{"data.csv"})

	snap, err := p.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !snap.Exists || snap.Rows != 0 || api.gets != 0 {
		t.Fatalf("expected existing empty dataset with no download, got %+v gets=%d", snap, api.gets)
	}
}
