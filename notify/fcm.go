package notify

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
)

// fcmMulticastLimit — максимум токенов в одном multicast-вызове FCM.
const fcmMulticastLimit = 500

// FCMSender отправляет push-уведомления через Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
}

func NewFCMSender(ctx context.Context, credentialsFile string) (*FCMSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create FCM messaging client: %w", err)
	}

	return &FCMSender{client: client}, nil
}

// SendMulticast рассылает msg всем токенам. Партии больше лимита FCM
// разбиваются на чанки и отправляются параллельно; исходы собираются в
// массив, индексы которого соответствуют tokens.
func (s *FCMSender) SendMulticast(ctx context.Context, tokens []string, msg Message) ([]TokenResult, error) {
	results := make([]TokenResult, len(tokens))

	g, gctx := errgroup.WithContext(ctx)
	for offset := 0; offset < len(tokens); offset += fcmMulticastLimit {
		end := offset + fcmMulticastLimit
		if end > len(tokens) {
			end = len(tokens)
		}
		chunk := tokens[offset:end]
		chunkOffset := offset

		g.Go(func() error {
			message := &messaging.MulticastMessage{
				Tokens: chunk,
				Notification: &messaging.Notification{
					Title: msg.Title,
					Body:  msg.Body,
				},
				Data: msg.Data,
			}

			response, err := s.client.SendEachForMulticast(gctx, message)
			if err != nil {
				return fmt.Errorf("FCM multicast failed: %w", err)
			}

			for i, resp := range response.Responses {
				results[chunkOffset+i] = TokenResult{
					Token: chunk[i],
					Err:   resp.Error,
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
