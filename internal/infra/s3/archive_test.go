package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
)

type fakeUploader struct {
	s3manageriface.UploaderAPI
	input *s3manager.UploadInput
	body  string
	err   error
}

func (f *fakeUploader) UploadWithContext(_ aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.input = in
	f.body = string(data)
	return &s3manager.UploadOutput{Location: "https://bucket.example/" + aws.StringValue(in.Key)}, nil
}

func TestArchiveUploadsToBucket(t *testing.T) {
	up := &fakeUploader{}
	archive := NewArchiveWithUploader("quiz-sources", up)

	loc, err := archive.Archive(context.Background(), "sources/u1/q1/notes.txt", strings.NewReader("hello"), "text/plain")
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if loc != "https://bucket.example/sources/u1/q1/notes.txt" {
		t.Fatalf("unexpected location %q", loc)
	}
	if aws.StringValue(up.input.Bucket) != "quiz-sources" || aws.StringValue(up.input.ContentType) != "text/plain" || up.body != "hello" {
		t.Fatalf("unexpected upload %+v body=%q", up.input, up.body)
	}
}

func TestArchiveWrapsUploadError(t *testing.T) {
	boom := errors.New("boom")
	archive := NewArchiveWithUploader("quiz-sources", &fakeUploader{err: boom})
	if _, err := archive.Archive(context.Background(), "k", strings.NewReader("x"), "text/plain"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestNewArchiveRequiresBucket(t *testing.T) {
	if _, err := NewArchive(Config{Region: "us-east-1"}); err == nil {
		t.Fatalf("expected error without bucket")
	}
}
