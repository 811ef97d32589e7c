package client

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// backgroundURL 推导底图地址：image 本身是 http(s) 地址时直接使用，
// 否则取服务器地址的主机部分，按 ws/wss 对应 http/https 拼出来
func backgroundURL(serverURL, imageName string) (string, error) {
	if strings.HasPrefix(imageName, "http://") || strings.HasPrefix(imageName, "https://") {
		return imageName, nil
	}
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	}
	u.Path = "/" + imageName
	u.RawQuery = ""
	return u.String(), nil
}

// FetchBackground 异步拉取并解码世界底图。
// 成功时经通道投递一次；失败只记日志并关闭通道，画面保持无底图。
func FetchBackground(serverURL, imageName string) <-chan image.Image {
	ch := make(chan image.Image, 1)
	go func() {
		defer close(ch)

		target, err := backgroundURL(serverURL, imageName)
		if err != nil {
			Log.Errorf("background url: %v", err)
			return
		}
		start := time.Now()
		resp, err := http.Get(target)
		if err != nil {
			Log.Errorf("fetch background %s: %v", target, err)
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			Log.Errorf("fetch background %s: %s", target, resp.Status)
			return
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			Log.Errorf("read background %s: %v", target, err)
			return
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			Log.Errorf("decode background %s: %v", target, err)
			return
		}
		Log.Infof("background %s fetched: %s in %s", target,
			humanize.Bytes(uint64(len(data))), time.Since(start).Round(time.Millisecond))
		ch <- img
	}()
	return ch
}
