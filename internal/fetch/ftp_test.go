package fetch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFTPURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantHost string
		wantPath string
		wantErr  string
	}{
		{
			name:     "default port",
			url:      "ftp://gis.example.gov/roads/streets.zip",
			wantHost: "gis.example.gov:21",
			wantPath: "/roads/streets.zip",
		},
		{
			name:     "explicit port",
			url:      "ftp://gis.example.gov:2121/streets.zip",
			wantHost: "gis.example.gov:2121",
			wantPath: "/streets.zip",
		},
		{
			name:    "wrong scheme",
			url:     "https://example.com/file.zip",
			wantErr: "expected ftp scheme",
		},
		{
			name:    "missing path",
			url:     "ftp://gis.example.gov",
			wantErr: "empty path",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, path, err := splitFTPURL(tt.url)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPath, path)
		})
	}
}

func TestNewFTPFetcher_DefaultTimeout(t *testing.T) {
	f := NewFTPFetcher(FTPOptions{})
	assert.Equal(t, 30*time.Second, f.opts.Timeout)
}
