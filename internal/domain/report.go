package domain

// Report описывает объект отчёта, который хранится в S3
type Report struct {
	Bucket      string
	ObjectKey   string
	Data        []byte
	ContentType string
}

func NewReport(bucket string, objectKey string, data []byte, contentType string) *Report {
	return &Report{
		Bucket:      bucket,
		ObjectKey:   objectKey,
		Data:        data,
		ContentType: contentType,
	}
}
