package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"dolphinmem/service"
)

type Client struct {
	addr       string
	url        string
	httpClient *http.Client
}

func NewClient(addr string) (*Client, error) {
	c := &Client{
		addr:       addr,
		url:        fmt.Sprintf("http://%s", addr),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	if !c.IsDolphinmemServer() {
		return nil, fmt.Errorf("%s is not a dolphinmem server", c.addr)
	}
	return c, nil
}

func (c *Client) SendExpr(cmdType service.CmdType, args string) (string, error) {
	var path string
	switch cmdType {
	case service.String:
		path = "/string"
	case service.Status:
		path = "/status"
	case service.Read:
		fallthrough
	default:
		path = "/read"
	}

	resp, err := c.do(&doRequest{
		method: http.MethodGet,
		path:   path,
		expr:   fmt.Sprintf("%s %s", cmdType, args),
	})
	if err != nil {
		return "", err
	}

	if resp.Status != http.StatusOK {
		return "", fmt.Errorf("%s (status %d)", resp.Msg, resp.Status)
	}

	respStr, ok := resp.Data.(string)
	if !ok {
		return "", fmt.Errorf("unexpected response type %T", resp.Data)
	}

	return respStr, nil
}

func (c *Client) IsDolphinmemServer() bool {
	if c.addr == "" {
		return false
	}

	resp, err := c.do(&doRequest{
		method: http.MethodGet,
		path:   "/dolphinmem",
	})
	if err != nil {
		return false
	}

	return resp.Status == http.StatusOK
}

type doRequest struct {
	method string
	path   string
	header http.Header
	expr   string
}

func (c *Client) jsonHeader() http.Header {
	header := http.Header{}
	header.Set("Content-Type", "application/json")

	return header
}

func (c *Client) do(req *doRequest) (resp *response, err error) {
	url := c.url + req.path

	exr := newExpression(req.expr, os.Getpid())
	bs, err := json.Marshal(exr)
	if err != nil {
		return
	}

	r, err := http.NewRequest(req.method, url, bytes.NewReader(bs))
	if err != nil {
		return
	}

	if req.header == nil {
		r.Header = c.jsonHeader()
	} else {
		r.Header = req.header
	}

	res, err := c.httpClient.Do(r)
	if err != nil {
		return
	}
	defer res.Body.Close()

	bs, err = io.ReadAll(res.Body)
	if err != nil {
		return
	}

	err = json.Unmarshal(bs, &resp)
	return
}
