package plugin

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"sort"
	"strconv"
	"strings"
)

// sendFunc 发送一封已编码的邮件
type sendFunc func(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// EmailPlugin 邮件通知插件（对外导出）
type EmailPlugin struct {
	name     string
	smtpHost string
	smtpPort int
	username string
	password string
	from     string
	to       []string
	enabled  bool
	send     sendFunc
}

// NewEmailPlugin 创建邮件通知插件（对外导出）
func NewEmailPlugin() *EmailPlugin {
	e := &EmailPlugin{name: "email"}
	e.send = e.deliver
	return e
}

// Name 插件名称（实现Plugin接口）
func (e *EmailPlugin) Name() string {
	return e.name
}

// Init 初始化插件（实现Plugin接口）
// 参数：smtp_host、smtp_port（默认25）、username、password、from、to（逗号分隔）
func (e *EmailPlugin) Init(params map[string]string) error {
	e.smtpHost = params["smtp_host"]
	if e.smtpHost == "" {
		return fmt.Errorf("smtp_host参数不能为空")
	}

	e.smtpPort = 25
	if portStr := params["smtp_port"]; portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("smtp_port参数格式错误: %w", err)
		}
		e.smtpPort = port
	}

	// 用户名和密码（可选，用于认证）
	e.username = params["username"]
	e.password = params["password"]

	e.from = params["from"]
	if e.from == "" {
		return fmt.Errorf("from参数不能为空")
	}

	e.to = e.to[:0]
	for _, addr := range strings.Split(params["to"], ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			e.to = append(e.to, addr)
		}
	}
	if len(e.to) == 0 {
		return fmt.Errorf("to参数不能为空")
	}

	e.enabled = true
	log.Printf("✅ [EmailPlugin] 初始化完成: SMTP=%s:%d, From=%s, To=%v", e.smtpHost, e.smtpPort, e.from, e.to)
	return nil
}

// Execute 发送通知邮件（实现Plugin接口）
func (e *EmailPlugin) Execute(ctx context.Context, data PluginData) error {
	if !e.enabled {
		return fmt.Errorf("邮件插件未初始化")
	}

	subject := buildSubject(data)
	msg := e.buildMessage(subject, buildBody(data))

	var auth smtp.Auth
	if e.username != "" && e.password != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.smtpHost)
	}
	addr := fmt.Sprintf("%s:%d", e.smtpHost, e.smtpPort)
	if err := e.send(ctx, addr, auth, e.from, e.to, []byte(msg)); err != nil {
		log.Printf("❌ [EmailPlugin] 发送邮件失败: %v", err)
		return err
	}

	log.Printf("✅ [EmailPlugin] 邮件发送成功: Event=%s, Subject=%s", data.Event, subject)
	return nil
}

// buildSubject 构建邮件主题
func buildSubject(data PluginData) string {
	switch data.Event {
	case EventRunStarted:
		return fmt.Sprintf("[运行开始] %s - %s", data.Pipeline, data.RunID)
	case EventRunSucceeded:
		return fmt.Sprintf("[运行成功] %s - %s", data.Pipeline, data.RunID)
	case EventRunFailed:
		return fmt.Sprintf("[运行失败] %s - %s", data.Pipeline, data.RunID)
	case EventRunCancelled:
		return fmt.Sprintf("[运行取消] %s - %s", data.Pipeline, data.RunID)
	case EventNodeFailed:
		return fmt.Sprintf("[节点失败] %s/%s - %s", data.Pipeline, data.TaskID, data.RunID)
	default:
		return fmt.Sprintf("[系统通知] %s", data.Event)
	}
}

// buildBody 构建邮件正文
func buildBody(data PluginData) string {
	var body strings.Builder
	fmt.Fprintf(&body, "事件类型: %s\n", data.Event)
	fmt.Fprintf(&body, "状态: %s\n", data.Status)
	if data.Pipeline != "" {
		fmt.Fprintf(&body, "Pipeline: %s\n", data.Pipeline)
	}
	fmt.Fprintf(&body, "Run ID: %s\n", data.RunID)
	if data.TaskID != "" {
		fmt.Fprintf(&body, "Task ID: %s\n", data.TaskID)
	}
	if data.Duration > 0 {
		fmt.Fprintf(&body, "耗时: %s\n", data.Duration)
	}
	if data.Error != "" {
		fmt.Fprintf(&body, "错误信息: %s\n", data.Error)
	}
	if len(data.Data) > 0 {
		keys := make([]string, 0, len(data.Data))
		for k := range data.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		body.WriteString("\n详细信息:\n")
		for _, k := range keys {
			fmt.Fprintf(&body, "  %s: %v\n", k, data.Data[k])
		}
	}
	return body.String()
}

// buildMessage 构建邮件消息
func (e *EmailPlugin) buildMessage(subject, body string) string {
	var message strings.Builder
	fmt.Fprintf(&message, "From: %s\r\n", e.from)
	fmt.Fprintf(&message, "To: %s\r\n", strings.Join(e.to, ", "))
	fmt.Fprintf(&message, "Subject: %s\r\n", subject)
	message.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	message.WriteString("\r\n")
	message.WriteString(body)
	return message.String()
}

// deliver 发送邮件，连接的读写截止时间取自 ctx
// 465端口走隐式TLS，其余端口在服务端支持时升级STARTTLS
func (e *EmailPlugin) deliver(ctx context.Context, addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	netDialer := &net.Dialer{}
	var (
		conn net.Conn
		err  error
	)
	if e.smtpPort == 465 {
		dialer := &tls.Dialer{NetDialer: netDialer, Config: &tls.Config{ServerName: e.smtpHost}}
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = netDialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("连接SMTP服务器失败: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("设置连接超时失败: %w", err)
		}
	}
	// 没有截止时间的 ctx 被取消时同样中断阻塞中的读写
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	client, err := smtp.NewClient(conn, e.smtpHost)
	if err != nil {
		return wrapSMTPErr(ctx, "创建SMTP客户端失败", err)
	}
	defer client.Close()

	if e.smtpPort != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: e.smtpHost}); err != nil {
				return wrapSMTPErr(ctx, "STARTTLS失败", err)
			}
		}
	}
	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return wrapSMTPErr(ctx, "SMTP认证失败", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return wrapSMTPErr(ctx, "设置发件人失败", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return wrapSMTPErr(ctx, "设置收件人失败", err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return wrapSMTPErr(ctx, "获取数据写入器失败", err)
	}
	if _, err := writer.Write(msg); err != nil {
		return wrapSMTPErr(ctx, "写入邮件内容失败", err)
	}
	if err := writer.Close(); err != nil {
		return wrapSMTPErr(ctx, "关闭数据写入器失败", err)
	}
	return client.Quit()
}

// wrapSMTPErr ctx 已结束或连接因截止时间超时时附带 ctx 的错误，便于调用方用 errors.Is 判断
func wrapSMTPErr(ctx context.Context, msg string, err error) error {
	ctxErr := ctx.Err()
	var netErr net.Error
	if ctxErr == nil && errors.As(err, &netErr) && netErr.Timeout() {
		if _, ok := ctx.Deadline(); ok {
			ctxErr = context.DeadlineExceeded
		}
	}
	if ctxErr != nil {
		return fmt.Errorf("%s: %w (%w)", msg, ctxErr, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
