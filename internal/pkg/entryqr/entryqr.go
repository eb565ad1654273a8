package entryqr

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const (
	dataURLPrefix = "data:image/png;base64,"
	defaultSize   = 256
)

// Issuer 生成入场令牌与二维码 PNG
type Issuer struct {
	size int
}

// NewIssuer 创建二维码生成器
func NewIssuer() *Issuer {
	return &Issuer{size: defaultSize}
}

// NewToken 随机入场令牌
func (i *Issuer) NewToken() string {
	return uuid.NewString()
}

// DataURL 把内容编码为 PNG 二维码，返回 data URL
func (i *Issuer) DataURL(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, i.size)
	if err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}

// DecodeDataURL 取出 data URL 中的 PNG 字节
func DecodeDataURL(dataURL string) ([]byte, error) {
	if !strings.HasPrefix(dataURL, dataURLPrefix) {
		return nil, fmt.Errorf("not a png data url")
	}
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, dataURLPrefix))
}
