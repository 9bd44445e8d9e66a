package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	admin "google.golang.org/api/admin/directory/v1"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/groupssettings/v1"
	"google.golang.org/api/option"
)

// UserInfoURL is Google's OAuth userinfo endpoint.
const UserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// ServiceAccountScopes are delegated to the service account for group
// provisioning and group-shared file access.
var ServiceAccountScopes = []string{
	admin.AdminDirectoryGroupScope,
	admin.AdminDirectoryGroupMemberScope,
	groupssettings.AppsGroupsSettingsScope,
	drive.DriveReadonlyScope,
	drive.DriveMetadataReadonlyScope,
}

// UserInfo contains the user's basic profile information from Google.
type UserInfo struct {
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// NewDriveService creates a Drive API service that authenticates with ts
// over the base transport. A nil base uses http.DefaultTransport.
func NewDriveService(ctx context.Context, ts oauth2.TokenSource, base http.RoundTripper, opts ...option.ClientOption) (*drive.Service, error) {
	client := &http.Client{Transport: &oauth2.Transport{Source: ts, Base: base}}
	return drive.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)...)
}

// NewServiceAccountClient builds an HTTP client that impersonates subject
// through domain-wide delegation. base, when non-nil, carries the
// underlying transport.
func NewServiceAccountClient(ctx context.Context, credentialsFile, subject string, base *http.Client) (*http.Client, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}

	cfg, err := googleoauth.JWTConfigFromJSON(data, ServiceAccountScopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account file: %w", err)
	}
	cfg.Subject = subject

	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	return cfg.Client(ctx), nil
}

// Services bundles the API clients used for group provisioning.
type Services struct {
	Directory *admin.Service
	Settings  *groupssettings.Service
	Drive     *drive.Service
}

// NewServices creates every service-account API client over one HTTP client.
func NewServices(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*Services, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)

	dir, err := admin.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create directory service: %w", err)
	}
	settings, err := groupssettings.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create groups settings service: %w", err)
	}
	drv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &Services{Directory: dir, Settings: settings, Drive: drv}, nil
}

// GetUserInfo fetches the user's profile using an access token.
func GetUserInfo(ctx context.Context, client *http.Client, endpoint, accessToken string) (*UserInfo, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if endpoint == "" {
		endpoint = UserInfoURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request failed with status %d", resp.StatusCode)
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("user info has no email")
	}
	return &info, nil
}
