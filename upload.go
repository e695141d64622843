package folio

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Uploader stores a base64-encoded image somewhere and returns its public
// URL and dimensions.
type Uploader interface {
	Upload(ctx context.Context, payload string) (UploadResult, error)
}

func (a *App) handleUpload(c echo.Context) error {
	var req struct {
		Image string `json:"image"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Image == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "No image provided")
	}

	result, err := a.Uploader.Upload(c.Request().Context(), req.Image)
	if err != nil {
		if errors.Is(err, ErrUploadNotConfigured) {
			return echo.NewHTTPError(http.StatusInternalServerError, "Upload service not configured")
		}
		a.logger.Error("upload failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Upload failed")
	}
	return c.JSON(http.StatusOK, result)
}

const cloudinaryFolder = "portfolio-blog"

// CloudinaryUploader signs and forwards images to the Cloudinary upload API.
// No retry: the admin form simply resubmits on failure.
type CloudinaryUploader struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string

	// BaseURL and Client exist so tests can point uploads at a local server.
	BaseURL string
	Client  *http.Client

	now func() time.Time
}

// NewCloudinaryUploader creates an uploader for the given account. Empty
// credentials are allowed; Upload then fails with ErrUploadNotConfigured.
func NewCloudinaryUploader(cloudName, apiKey, apiSecret string) *CloudinaryUploader {
	return &CloudinaryUploader{
		CloudName: cloudName,
		APIKey:    apiKey,
		APISecret: apiSecret,
		Folder:    cloudinaryFolder,
		BaseURL:   "https://api.cloudinary.com",
		Client:    &http.Client{Timeout: 30 * time.Second},
		now:       time.Now,
	}
}

func (u *CloudinaryUploader) configured() bool {
	return u.CloudName != "" && u.APIKey != "" && u.APISecret != ""
}

// signature computes the hex SHA-1 digest over the sorted parameter string
// followed by the API secret, per Cloudinary's signed-upload scheme.
func (u *CloudinaryUploader) signature(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + u.APISecret))
	return hex.EncodeToString(sum[:])
}

// Upload forwards the base64 image payload to Cloudinary and returns the
// normalized result.
func (u *CloudinaryUploader) Upload(ctx context.Context, payload string) (UploadResult, error) {
	if !u.configured() {
		return UploadResult{}, ErrUploadNotConfigured
	}

	ts := strconv.FormatInt(u.now().UTC().Unix(), 10)
	sig := u.signature(map[string]string{"folder": u.Folder, "timestamp": ts})

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fields := map[string]string{
		"file":      payload,
		"api_key":   u.APIKey,
		"timestamp": ts,
		"folder":    u.Folder,
		"signature": sig,
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return UploadResult{}, err
		}
	}
	if err := w.Close(); err != nil {
		return UploadResult{}, err
	}

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", u.BaseURL, u.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())

	resp, err := u.Client.Do(req)
	if err != nil {
		return UploadResult{}, fmt.Errorf("cloudinary request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return UploadResult{}, fmt.Errorf("cloudinary: %s", apiErr.Error.Message)
		}
		return UploadResult{}, fmt.Errorf("cloudinary: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		SecureURL string `json:"secure_url"`
		PublicID  string `json:"public_id"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return UploadResult{}, fmt.Errorf("decode cloudinary response: %w", err)
	}
	return UploadResult{
		URL:      out.SecureURL,
		PublicID: out.PublicID,
		Width:    out.Width,
		Height:   out.Height,
	}, nil
}
