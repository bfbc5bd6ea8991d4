package progress

import "fmt"

// Step identifies a pipeline stage for which a user-facing message exists.
type Step string

const (
	StepValidation    Step = "validation"
	StepSettings      Step = "settings"
	StepResolve       Step = "resolve"
	StepDriveDownload Step = "drive_download"
	StepS3Video       Step = "s3_video_processing"
	StepVideoUpload   Step = "video_upload"
	StepImageUpload   Step = "image_upload"
	StepTranscode     Step = "transcode"
	StepThumbnail     Step = "thumbnail"
	StepAdCreation    Step = "ad_creation"
	StepRetry         Step = "retry"
	StepSuccess       Step = "success"
)

// Message returns the progress text for step. subject is the asset or ad
// name the step is acting on and may be empty.
func Message(step Step, subject string) string {
	switch step {
	case StepValidation:
		return "Validating request data..."
	case StepSettings:
		return "Loading account settings..."
	case StepResolve:
		return "Preparing media..."
	case StepDriveDownload:
		return fmt.Sprintf("Downloading from Google Drive: %s...", subject)
	case StepS3Video:
		return fmt.Sprintf("Processing S3 video: %s...", subject)
	case StepVideoUpload:
		return fmt.Sprintf("Uploading video: %s...", subject)
	case StepImageUpload:
		return fmt.Sprintf("Uploading image: %s...", subject)
	case StepTranscode:
		return fmt.Sprintf("Waiting for video processing: %s...", subject)
	case StepThumbnail:
		return fmt.Sprintf("Preparing thumbnail: %s...", subject)
	case StepAdCreation:
		return fmt.Sprintf("Creating ad: %s...", subject)
	case StepRetry:
		return fmt.Sprintf("Temporary platform error, retrying (%s)...", subject)
	case StepSuccess:
		return "All ads created successfully!"
	default:
		return "Processing..."
	}
}
