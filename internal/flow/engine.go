package flow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"shopbot/internal/models"
)

// ErrConflict reports a commit rejected for violating a uniqueness rule.
// Committers translate their storage duplicates into it so the wizard can
// re-prompt instead of dying.
var ErrConflict = errors.New("flow: conflicting record")

const (
	msgCancelled = "Действие отменено."

	promptCategoryChoice = "Выберите категорию или создайте новую:"
	promptCategoryName   = "Введите название новой категории:"
	promptProductName    = "Введите название товара:"
	promptProductDesc    = "Введите описание товара:"
	promptProductPrice   = "Введите цену товара:"
	promptProductSize    = "Введите размер товара:"
	promptProductMat     = "Введите материал товара:"
	promptProductPhoto   = "Отправьте фото товара:"
	msgProductDone       = "Товар добавлен ✅"

	promptPromoName  = "Введите название акции:"
	promptPromoDesc  = "Введите описание акции:"
	promptPromoImage = "Отправьте изображение акции или напишите none:"
	promptPromoStart = "Введите дату начала (ГГГГ-ММ-ДД):"
	promptPromoEnd   = "Введите дату окончания (ГГГГ-ММ-ДД):"
	msgPromoDone     = "Акция добавлена ✅"

	promptCodeValue    = "Введите промокод (буквы и цифры):"
	promptCodeProduct  = "Выберите товар для промокода:"
	promptCodeDiscount = "Введите размер скидки в процентах (1-100):"
	msgCodeDone        = "Промокод создан ✅"
	msgCodeTaken       = "Такой промокод уже существует. Введите другой промокод:"
	retryCategoryTaken = "Категория с таким названием уже существует. Введите другое название:"

	promptMailContent = "Введите текст рассылки:"
	promptMailTimer   = "Через сколько минут отправить рассылку?"

	retryPrice    = "Цена должна быть числом больше нуля. Попробуйте ещё раз:"
	retryDiscount = "Скидка должна быть целым числом от 1 до 100. Попробуйте ещё раз:"
	retryDate     = "Дата должна быть в формате ГГГГ-ММ-ДД. Попробуйте ещё раз:"
	retryDatePast = "Дата начала не может быть в прошлом. Попробуйте ещё раз:"
	retryDateEnd  = "Дата окончания не может быть раньше даты начала. Попробуйте ещё раз:"
	retryCode     = "Промокод должен состоять только из букв и цифр. Попробуйте ещё раз:"
	retryMinutes  = "Укажите целое число минут, не меньше 1. Попробуйте ещё раз:"
	retryPhoto    = "Нужно отправить фото. Попробуйте ещё раз:"
	retryChoice   = "Выберите вариант с клавиатуры."
	retryEmpty    = "Сообщение не может быть пустым. Попробуйте ещё раз:"
)

// Engine drives the admin wizards. It validates each turn against the current
// step, re-prompting on bad input, and commits through the Committer only when
// the final step passes.
type Engine struct {
	Directory Directory
	Committer Committer
	Now       func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Start opens a wizard of the given kind at its first step.
func (e *Engine) Start(ctx context.Context, kind Kind) (Outcome, error) {
	st := &State{Kind: kind}
	switch kind {
	case KindProduct:
		st.Step = StepCategoryChoice
	case KindPromotion:
		st.Step = StepPromoName
	case KindPromoCode:
		st.Step = StepCodeValue
	case KindMailing:
		st.Step = StepMailContent
	default:
		return Outcome{}, fmt.Errorf("unknown wizard kind %q", kind)
	}
	return e.prompt(ctx, st)
}

// Advance feeds one user turn into the wizard.
func (e *Engine) Advance(ctx context.Context, st *State, in Input) (Outcome, error) {
	if in.Text == Back || in.Text == CancelCommand {
		return Outcome{Reply: msgCancelled, Aborted: true}, nil
	}

	switch st.Step {
	case StepCategoryChoice:
		return e.handleCategoryChoice(ctx, st, in)
	case StepCategoryName:
		return e.handleCategoryName(ctx, st, in)
	case StepProductName:
		return e.acceptText(ctx, st, in, &st.Name, StepProductDesc)
	case StepProductDesc:
		return e.acceptText(ctx, st, in, &st.Description, StepProductPrice)
	case StepProductPrice:
		price, err := parsePrice(in.Text)
		if err != nil {
			return e.retry(st, retryPrice)
		}
		st.Price = price
		return e.advanceTo(ctx, st, StepProductSize)
	case StepProductSize:
		return e.acceptText(ctx, st, in, &st.Size, StepProductMat)
	case StepProductMat:
		return e.acceptText(ctx, st, in, &st.Material, StepProductPhoto)
	case StepProductPhoto:
		return e.handleProductPhoto(ctx, st, in)

	case StepPromoName:
		return e.acceptText(ctx, st, in, &st.Name, StepPromoDesc)
	case StepPromoDesc:
		return e.acceptText(ctx, st, in, &st.Description, StepPromoImage)
	case StepPromoImage:
		return e.handlePromoImage(ctx, st, in)
	case StepPromoStart:
		start, err := parseStartDate(in.Text, e.now())
		if err != nil {
			if err == errDatePast {
				return e.retry(st, retryDatePast)
			}
			return e.retry(st, retryDate)
		}
		st.StartDate = start.Format(dateLayout)
		return e.advanceTo(ctx, st, StepPromoEnd)
	case StepPromoEnd:
		return e.commitPromotion(ctx, st, in)

	case StepCodeValue:
		code, err := normalizeCode(in.Text)
		if err != nil {
			return e.retry(st, retryCode)
		}
		st.Code = code
		return e.advanceTo(ctx, st, StepCodeProduct)
	case StepCodeProduct:
		return e.handleCodeProduct(ctx, st, in)
	case StepCodeDiscount:
		discount, err := parseDiscount(in.Text)
		if err != nil {
			return e.retry(st, retryDiscount)
		}
		st.Discount = discount
		return e.advanceTo(ctx, st, StepCodeStart)
	case StepCodeStart:
		start, err := parseStartDate(in.Text, e.now())
		if err != nil {
			if err == errDatePast {
				return e.retry(st, retryDatePast)
			}
			return e.retry(st, retryDate)
		}
		st.StartDate = start.Format(dateLayout)
		return e.advanceTo(ctx, st, StepCodeEnd)
	case StepCodeEnd:
		return e.commitPromoCode(ctx, st, in)

	case StepMailContent:
		return e.acceptText(ctx, st, in, &st.Content, StepMailTimer)
	case StepMailTimer:
		return e.commitMailing(ctx, st, in)
	}
	return Outcome{}, fmt.Errorf("unknown wizard step %q", st.Step)
}

func (e *Engine) handleCategoryChoice(ctx context.Context, st *State, in Input) (Outcome, error) {
	if in.Text == NewCategoryChoice {
		return e.advanceTo(ctx, st, StepCategoryName)
	}
	if in.ChoiceID > 0 {
		ok, err := e.categoryExists(ctx, in.ChoiceID)
		if err != nil {
			return Outcome{}, err
		}
		if ok {
			st.CategoryID = in.ChoiceID
			return e.advanceTo(ctx, st, StepProductName)
		}
	}
	if in.Text != "" {
		category, err := e.Directory.CategoryByName(ctx, in.Text)
		if err != nil {
			return Outcome{}, err
		}
		if category != nil {
			st.CategoryID = category.ID
			return e.advanceTo(ctx, st, StepProductName)
		}
	}
	return e.retryWithOptions(ctx, st)
}

func (e *Engine) categoryExists(ctx context.Context, id int64) (bool, error) {
	categories, err := e.Directory.Categories(ctx)
	if err != nil {
		return false, err
	}
	for _, c := range categories {
		if c.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// handleCategoryName records the new category's name; the row itself is only
// written with the product at the final commit, so an abandoned wizard leaves
// nothing behind. An exact name collision re-prompts.
func (e *Engine) handleCategoryName(ctx context.Context, st *State, in Input) (Outcome, error) {
	name := strings.TrimSpace(in.Text)
	if name == "" {
		return e.retry(st, retryEmpty)
	}
	existing, err := e.Directory.CategoryByName(ctx, name)
	if err != nil {
		return Outcome{}, err
	}
	if existing != nil {
		return e.retry(st, retryCategoryTaken)
	}
	st.CategoryName = name
	return e.advanceTo(ctx, st, StepProductName)
}

func (e *Engine) handleProductPhoto(ctx context.Context, st *State, in Input) (Outcome, error) {
	if in.PhotoID == "" {
		return e.retry(st, retryPhoto)
	}
	_, err := e.Committer.CreateProduct(ctx, ProductDraft{
		CategoryID:   st.CategoryID,
		CategoryName: st.CategoryName,

		Name:        st.Name,
		Description: st.Description,
		Price:       st.Price,
		Size:        st.Size,
		Material:    st.Material,
		PhotoFileID: in.PhotoID,
	})
	if err != nil {
		// the only uniqueness rule a product commit can hit is the new
		// category's name, taken in the window since the name step
		if errors.Is(err, ErrConflict) {
			st.Step = StepCategoryName
			return Outcome{Next: st, Reply: retryCategoryTaken}, nil
		}
		return Outcome{}, err
	}
	return Outcome{Reply: msgProductDone, Done: true}, nil
}

func (e *Engine) handlePromoImage(ctx context.Context, st *State, in Input) (Outcome, error) {
	switch {
	case in.PhotoID != "":
		st.ImageRef = in.PhotoID
	case strings.ToLower(strings.TrimSpace(in.Text)) == "none":
		st.ImageRef = ""
	default:
		return e.retry(st, promptPromoImage)
	}
	return e.advanceTo(ctx, st, StepPromoStart)
}

func (e *Engine) commitPromotion(ctx context.Context, st *State, in Input) (Outcome, error) {
	end, err := parseEndDate(in.Text, st.StartDate)
	if err != nil {
		if err == errDateOrder {
			return e.retry(st, retryDateEnd)
		}
		return e.retry(st, retryDate)
	}
	start, _ := parseDate(st.StartDate)
	_, err = e.Committer.CreatePromotion(ctx, PromotionDraft{
		Name:        st.Name,
		Description: st.Description,
		ImageFileID: st.ImageRef,
		StartDate:   start,
		EndDate:     end,
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Reply: msgPromoDone, Done: true}, nil
}

func (e *Engine) handleCodeProduct(ctx context.Context, st *State, in Input) (Outcome, error) {
	if in.ChoiceID <= 0 {
		return e.retryWithOptions(ctx, st)
	}
	if _, err := e.Directory.ProductByID(ctx, in.ChoiceID); err != nil {
		return e.retryWithOptions(ctx, st)
	}
	st.ProductID = in.ChoiceID
	return e.advanceTo(ctx, st, StepCodeDiscount)
}

func (e *Engine) commitPromoCode(ctx context.Context, st *State, in Input) (Outcome, error) {
	end, err := parseEndDate(in.Text, st.StartDate)
	if err != nil {
		if err == errDateOrder {
			return e.retry(st, retryDateEnd)
		}
		return e.retry(st, retryDate)
	}
	start, _ := parseDate(st.StartDate)
	_, err = e.Committer.CreatePromoCode(ctx, PromoCodeDraft{
		Code:      st.Code,
		ProductID: st.ProductID,
		Discount:  st.Discount,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		if errors.Is(err, ErrConflict) {
			st.Step = StepCodeValue
			return Outcome{Next: st, Reply: msgCodeTaken}, nil
		}
		return Outcome{}, err
	}
	return Outcome{Reply: msgCodeDone, Done: true}, nil
}

func (e *Engine) commitMailing(ctx context.Context, st *State, in Input) (Outcome, error) {
	minutes, err := parseMinutes(in.Text)
	if err != nil {
		return e.retry(st, retryMinutes)
	}
	sendAt := e.now().Add(time.Duration(minutes) * time.Minute)
	if _, err := e.Committer.ScheduleMailing(ctx, st.Content, sendAt); err != nil {
		return Outcome{}, err
	}
	reply := fmt.Sprintf("Рассылка запланирована на %s ✅", sendAt.Format("02.01.2006 15:04"))
	return Outcome{Reply: reply, Done: true}, nil
}

func (e *Engine) acceptText(ctx context.Context, st *State, in Input, dst *string, next Step) (Outcome, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return e.retry(st, retryEmpty)
	}
	*dst = text
	return e.advanceTo(ctx, st, next)
}

func (e *Engine) advanceTo(ctx context.Context, st *State, next Step) (Outcome, error) {
	st.Step = next
	return e.prompt(ctx, st)
}

func (e *Engine) retry(st *State, reply string) (Outcome, error) {
	return Outcome{Next: st, Reply: reply}, nil
}

// retryWithOptions re-prompts a menu step with its keyboard rebuilt.
func (e *Engine) retryWithOptions(ctx context.Context, st *State) (Outcome, error) {
	out, err := e.prompt(ctx, st)
	if err != nil {
		return Outcome{}, err
	}
	out.Reply = retryChoice
	return out, nil
}

// prompt renders the current step's question and reply-keyboard options.
func (e *Engine) prompt(ctx context.Context, st *State) (Outcome, error) {
	out := Outcome{Next: st}
	switch st.Step {
	case StepCategoryChoice:
		categories, err := e.Directory.Categories(ctx)
		if err != nil {
			return Outcome{}, err
		}
		out.Reply = promptCategoryChoice
		for _, c := range categories {
			out.Options = append(out.Options, c.Name)
		}
		out.Options = append(out.Options, NewCategoryChoice)
	case StepCategoryName:
		out.Reply = promptCategoryName
	case StepProductName:
		out.Reply = promptProductName
	case StepProductDesc:
		out.Reply = promptProductDesc
	case StepProductPrice:
		out.Reply = promptProductPrice
	case StepProductSize:
		out.Reply = promptProductSize
	case StepProductMat:
		out.Reply = promptProductMat
	case StepProductPhoto:
		out.Reply = promptProductPhoto

	case StepPromoName:
		out.Reply = promptPromoName
	case StepPromoDesc:
		out.Reply = promptPromoDesc
	case StepPromoImage:
		out.Reply = promptPromoImage
	case StepPromoStart:
		out.Reply = promptPromoStart
	case StepPromoEnd:
		out.Reply = promptPromoEnd

	case StepCodeValue:
		out.Reply = promptCodeValue
	case StepCodeProduct:
		products, err := e.Directory.Products(ctx)
		if err != nil {
			return Outcome{}, err
		}
		out.Reply = promptCodeProduct
		for _, p := range products {
			out.Options = append(out.Options, productOption(p))
		}
	case StepCodeDiscount:
		out.Reply = promptCodeDiscount
	case StepCodeStart:
		out.Reply = promptPromoStart
	case StepCodeEnd:
		out.Reply = promptPromoEnd

	case StepMailContent:
		out.Reply = promptMailContent
	case StepMailTimer:
		out.Reply = promptMailTimer
	default:
		return Outcome{}, fmt.Errorf("unknown wizard step %q", st.Step)
	}
	out.Options = append(out.Options, Back)
	return out, nil
}

func productOption(p models.Product) string {
	return strconv.FormatInt(p.ID, 10) + ". " + p.Name
}

